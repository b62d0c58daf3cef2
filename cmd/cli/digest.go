package main

import (
	"fmt"
	"strings"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

func digestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest key=value ...",
		Short: "Compute or check the callback digest of a set of parameters",
		Long: `Compute the callback digest over the given parameters in the order given.

When a hash=... parameter is present it is checked instead and the command
fails if it does not match. The key comes from --key or from the accounting
group's entry in BAMBORA_KEYS.

Examples:
  deposit-cli digest --group PENSION txnid=81234567 orderid=555 amount=10000 currency=208
  deposit-cli digest --key s3cr3t --query orderid=555 amount=10000`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDigest,
	}
	cmd.Flags().String("group", "", "accounting group whose configured key is used")
	cmd.Flags().String("key", "", "callback key, overrides --group")
	cmd.Flags().Bool("query", false, "print the signed query string instead of the digest")
	return cmd
}

func runDigest(cmd *cobra.Command, args []string) error {
	fields := make(bambora.Fields, 0, len(args))
	var received string
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		if k == bambora.ParamHash {
			received = v
			continue
		}
		fields = append(fields, bambora.Field{Key: k, Value: v})
	}

	key, err := resolveKey(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if received != "" {
		if !bambora.Verify(key, fields.HashParams(), received) {
			return fmt.Errorf("digest mismatch: want %s", bambora.Digest(key, fields.HashParams()))
		}
		fmt.Fprintln(out, "digest ok")
		return nil
	}

	digest := bambora.Digest(key, fields.HashParams())
	if query, _ := cmd.Flags().GetBool("query"); query {
		fmt.Fprintln(out, append(fields, bambora.Field{Key: bambora.ParamHash, Value: digest}).Encode())
		return nil
	}
	fmt.Fprintln(out, digest)
	return nil
}

func resolveKey(cmd *cobra.Command) (string, error) {
	if key, _ := cmd.Flags().GetString("key"); key != "" {
		return key, nil
	}
	group, _ := cmd.Flags().GetString("group")
	if group == "" {
		return "", fmt.Errorf("pass --key or --group")
	}
	loadEnvFile(cmd)
	var env struct {
		Keys string `envconfig:"KEYS"`
	}
	if err := envconfig.Process("BAMBORA", &env); err != nil {
		return "", fmt.Errorf("read callback keys: %w", err)
	}
	ring, err := bambora.ParseKeyRing(env.Keys)
	if err != nil {
		return "", err
	}
	gk, err := ring.For(group)
	if err != nil {
		return "", err
	}
	return gk.MD5Key, nil
}
