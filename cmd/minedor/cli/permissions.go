package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/minedor/minedor/internal/access"
)

// ErrUsage reports a malformed permissions command line.
var ErrUsage = errors.New("usage: minedor permissions show [-json] | grant <role> <module,...> | reset")

// PermissionsCLI inspects and edits the persisted permission matrix outside the HTTP API.
type PermissionsCLI struct {
	store access.Store
}

// NewPermissionsCLI binds the helper to a matrix store.
func NewPermissionsCLI(store access.Store) *PermissionsCLI {
	return &PermissionsCLI{store: store}
}

// Run executes one subcommand and writes its output to w.
func (c *PermissionsCLI) Run(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	policy := access.NewPolicy(c.store, nil)
	if err := policy.Refresh(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "show":
		fs := flag.NewFlagSet("show", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return printMatrix(w, policy.Matrix(), *asJSON)
	case "grant":
		if len(args) != 3 {
			return ErrUsage
		}
		role, err := access.ParseRole(args[1])
		if err != nil {
			return err
		}
		modules, err := access.ParseModules(splitList(args[2]))
		if err != nil {
			return err
		}
		if err := policy.Replace(ctx, role, modules); err != nil {
			return err
		}
		return printMatrix(w, policy.Matrix(), false)
	case "reset":
		if err := policy.Reset(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "permission matrix reset to defaults")
		return err
	default:
		return ErrUsage
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printMatrix(w io.Writer, m access.Matrix, asJSON bool) error {
	if asJSON {
		data, err := access.EncodeMatrix(m)
		if err != nil {
			return err
		}
		var pretty map[string][]string
		if err := json.Unmarshal(data, &pretty); err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tMODULES")
	for _, role := range access.AllRoles() {
		fmt.Fprintf(tw, "%s\t%s\n", role, strings.Join(m.Modules(role).Strings(), ", "))
	}
	return tw.Flush()
}
