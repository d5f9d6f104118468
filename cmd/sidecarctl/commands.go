package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/sam-bercovici/hydra-sidecar/internal/infrastructure/password"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultTimeout = 60 * time.Second

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var (
		baseURL = envOr("SIDECAR_URL", "http://localhost:8080")
		outFmt  = envOr("SIDECAR_OUT", "text")
		timeout = defaultTimeout
	)
	cl := &client{Out: out}

	root := &cobra.Command{
		Use:           "sidecarctl",
		Short:         "Manage OAuth2 clients through the hydra sidecar",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if outFmt != "json" && outFmt != "text" {
				return fmt.Errorf("--out must be json or text, got %q", outFmt)
			}
			cl.BaseURL = baseURL
			cl.OutFormat = outFmt
			cl.HTTP = &http.Client{Timeout: timeout}
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "Sidecar base URL (env SIDECAR_URL)")
	root.PersistentFlags().StringVar(&outFmt, "out", outFmt, "Output format: json|text")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Request timeout")

	root.AddCommand(newSyncCmd(cl), newClientsCmd(cl), newHashCmd(out))
	return root
}

func newSyncCmd(cl *client) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make the stored clients equal to the list in a YAML or JSON file",
		Long: `sync sends the client list in --file to the sidecar. Stored clients that
are not in the list are deleted. The file holds either a list of clients or
an object with a "clients" list; every client needs client_id and
client_secret_hash.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			body, err := syncBody(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			resp, err := cl.do(cmd.Context(), http.MethodPost, "/sync/clients", body)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				cl.print(resp)
				return nil
			}
			return printSyncResult(cl.Out, resp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Client list file, - for stdin")
	return cmd
}

func newClientsCmd(cl *client) *cobra.Command {
	clientsCmd := &cobra.Command{Use: "clients", Short: "Client administration"}

	var createFile string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client from a YAML or JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createFile == "" {
				return errors.New("--file is required")
			}
			raw, err := readInput(cmd, createFile)
			if err != nil {
				return err
			}
			body, err := yamlToJSON(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", createFile, err)
			}
			resp, err := cl.do(cmd.Context(), http.MethodPost, "/admin/clients", body)
			if err != nil {
				return err
			}
			cl.print(resp)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "Client document, - for stdin")

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cl.do(cmd.Context(), http.MethodGet, "/admin/clients/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			cl.print(resp)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := cl.do(cmd.Context(), http.MethodDelete, "/admin/clients/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			cl.print(resp)
			return nil
		},
	}

	var expiresAt int64
	rotateCmd := &cobra.Command{
		Use:   "rotate ID",
		Short: "Rotate a client secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if cmd.Flags().Changed("expires-at") {
				if expiresAt < 0 {
					return errors.New("--expires-at must not be negative")
				}
				body, _ = json.Marshal(map[string]int64{domain.FieldSecretExpiresAt: expiresAt})
			}
			resp, err := cl.do(cmd.Context(), http.MethodPost, "/admin/clients/rotate/"+url.PathEscape(args[0]), body)
			if err != nil {
				return err
			}
			cl.print(resp)
			return nil
		},
	}
	rotateCmd.Flags().Int64Var(&expiresAt, "expires-at", 0, "New secret expiry as a unix timestamp, 0 for never")

	clientsCmd.AddCommand(createCmd, getCmd, deleteCmd, rotateCmd)
	return clientsCmd
}

func newHashCmd(out io.Writer) *cobra.Command {
	var scheme string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a plaintext secret read from stdin",
		Long: `hash reads one line from stdin and prints its hash in the given scheme,
ready to use as client_secret_hash in a sync file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := password.ParseScheme(scheme)
			if err != nil {
				return err
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			secret := strings.TrimRight(line, "\r\n")
			if secret == "" {
				return errors.New("empty secret on stdin")
			}
			hashed, err := password.Hash(secret, s)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hashed)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", string(password.SchemePBKDF2), "Hash scheme: pbkdf2|bcrypt")
	return cmd
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

// yamlToJSON converts a YAML (or JSON) document to JSON
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("empty document")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("document cannot be expressed as JSON: %w", err)
	}
	return b, nil
}

// syncBody accepts a bare client list or an object with a clients list
func syncBody(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	var clients any
	switch v := doc.(type) {
	case []any:
		clients = v
	case map[string]any:
		list, ok := v["clients"].([]any)
		if !ok {
			return nil, errors.New(`expected a "clients" list`)
		}
		clients = list
	default:
		return nil, errors.New("expected a client list")
	}

	b, err := json.Marshal(map[string]any{"clients": clients})
	if err != nil {
		return nil, fmt.Errorf("client list cannot be expressed as JSON: %w", err)
	}
	return b, nil
}

func printSyncResult(out io.Writer, body []byte) error {
	var result domain.SyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("unexpected sync response: %w", err)
	}

	fmt.Fprintf(out, "run %s: created=%d updated=%d deleted=%d failed=%d\n",
		result.RunID, result.CreatedCount, result.UpdatedCount, result.DeletedCount, result.FailedCount)
	for _, r := range result.Results {
		if r.Error != nil {
			fmt.Fprintf(out, "  %s %s: %s\n", r.Status, r.ClientID, *r.Error)
		}
	}
	if !result.Converged() {
		return fmt.Errorf("%d client(s) failed", result.FailedCount)
	}
	return nil
}
