package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mkoppen/pgdrift"
	"github.com/mkoppen/pgdrift/internal/formatter"
	"github.com/mkoppen/pgdrift/internal/store"
)

var (
	sourceURL  string
	targetURL  string
	dbURL      string
	namespaces string
	tables     string
	format     string
	filterFile string
	showTree   bool
)

var rootCmd = &cobra.Command{
	Use:   "pgdrift",
	Short: "Compare PostgreSQL databases by content signature",
	Long: `pgdrift computes content-addressed signatures (row-data hash, schema hash,
row count) over a database's namespaces and tables, and compares two
databases signature-first so unchanged subtrees are never read in full.`,
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Report drift between two databases",
	RunE:  runDiff,
}

var signatureCmd = &cobra.Command{
	Use:   "signature",
	Short: "Print a database's comparison signature",
	RunE:  runSignature,
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Compile a YAML filter document to a SQL predicate",
	RunE:  runWhere,
}

func init() {
	diffCmd.Flags().StringVar(&sourceURL, "source-url", "", "source PostgreSQL connection string")
	diffCmd.Flags().StringVar(&targetURL, "target-url", "", "target PostgreSQL connection string")
	diffCmd.Flags().StringVarP(&namespaces, "schemas", "s", "", "schemas to compare (comma-separated, default: all non-system)")
	diffCmd.Flags().StringVarP(&tables, "tables", "t", "", "specific tables (comma-separated, optional)")
	diffCmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or markdown")

	signatureCmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	signatureCmd.Flags().StringVarP(&namespaces, "schemas", "s", "", "schemas to include (comma-separated, default: all non-system)")
	signatureCmd.Flags().StringVarP(&tables, "tables", "t", "", "specific tables (comma-separated, optional)")
	signatureCmd.Flags().BoolVar(&showTree, "tree", false, "print per-node signatures for the whole hierarchy")

	whereCmd.Flags().StringVarP(&filterFile, "filter", "F", "", "YAML filter document ('-' for stdin)")

	rootCmd.AddCommand(diffCmd, signatureCmd, whereCmd)
}

func main() {
	setupLogging()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging() {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func runDiff(cmd *cobra.Command, args []string) error {
	if sourceURL == "" || targetURL == "" {
		return fmt.Errorf("both --source-url and --target-url must be specified")
	}

	report, err := pgdrift.Diff(cmd.Context(), sourceURL, targetURL, &pgdrift.Options{
		Namespaces: splitList(namespaces),
		Tables:     splitList(tables),
	})
	if err != nil {
		return fmt.Errorf("failed to diff: %w", err)
	}

	switch format {
	case "text":
		return formatter.NewTextFormatter(os.Stdout).Format(report)
	case "markdown":
		return formatter.NewMarkdownFormatter(os.Stdout).Format(report)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func runSignature(cmd *cobra.Command, args []string) error {
	if dbURL == "" {
		return fmt.Errorf("--db-url must be specified")
	}

	ctx := cmd.Context()
	database, err := pgdrift.Open(ctx, dbURL, &pgdrift.Options{
		Namespaces: splitList(namespaces),
		Tables:     splitList(tables),
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if showTree {
		return printTree(ctx, database.Tree, 0)
	}

	signature, err := database.Tree.GetSignature(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute signature: %w", err)
	}
	fmt.Println(signature)
	return nil
}

// printTree walks the hierarchy depth-first, printing each node's signature.
func printTree(ctx context.Context, node store.Node, depth int) error {
	signature, err := node.GetSignature(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute signature of %q: %w", node.Name(), err)
	}
	fmt.Printf("%s%s %s\n", strings.Repeat("  ", depth), node.Name(), signature)

	parent, ok := node.(interface {
		Children(ctx context.Context) ([]store.Node, error)
	})
	if !ok {
		return nil
	}
	children, err := parent.Children(ctx)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := printTree(ctx, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func runWhere(cmd *cobra.Command, args []string) error {
	if filterFile == "" {
		return fmt.Errorf("--filter must be specified")
	}

	var raw []byte
	var err error
	if filterFile == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(filterFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read filter document: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse filter document: %w", err)
	}

	params := []any{}
	clause, err := pgdrift.CompileFilter(doc, &params)
	if err != nil {
		return fmt.Errorf("failed to compile filter: %w", err)
	}

	fmt.Println(clause)
	for i, param := range params {
		fmt.Printf("$%d: %v\n", i+1, param)
	}
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
