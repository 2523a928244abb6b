package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"veraauth/internal/infra/veracrypto"
)

func runBundleVerify(args []string) int {
	fs := flag.NewFlagSet("bundle verify", flag.ContinueOnError)
	in := fs.String("in", "", "path to a serialized signature bundle")
	serviceOID := fs.String("service-oid", "", "service OID the bundle must be bound to")
	at := fs.String("at", "", "verification instant (RFC 3339; default now)")
	anchorPath := fs.String("trust-anchor", "", "path to a DER org certificate to pin")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "--in is required")
		return 1
	}

	payload, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read bundle: %v\n", err)
		return 1
	}

	instant := time.Now().UTC()
	if *at != "" {
		parsed, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse --at: %v\n", err)
			return 1
		}
		instant = parsed
	}

	var anchors [][]byte
	if *anchorPath != "" {
		anchor, err := os.ReadFile(*anchorPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read trust anchor: %v\n", err)
			return 1
		}
		anchors = append(anchors, anchor)
	}

	verified, err := veracrypto.VerifyBundle(payload, *serviceOID, instant, anchors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		return 1
	}

	fmt.Printf("bundle verified\n")
	fmt.Printf("  service OID: %s\n", verified.ServiceOID)
	if verified.MemberUser != "" {
		fmt.Printf("  member:      %s\n", verified.MemberUser)
	} else {
		fmt.Printf("  member:      (org bot)\n")
	}
	fmt.Printf("  valid from:  %s\n", verified.Validity.NotBefore.Format(time.RFC3339))
	fmt.Printf("  valid until: %s\n", verified.Validity.NotAfter.Format(time.RFC3339))
	return 0
}
