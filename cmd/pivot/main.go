package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dangerclosesec/pivot/formula"
	"github.com/dangerclosesec/pivot/internal/auth"
	"github.com/dangerclosesec/pivot/internal/config"
	"github.com/dangerclosesec/pivot/internal/serializer"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	vocabFile string
	columns   []string
	rows      []string
	values    []string
	strict    bool
	output    string
	subject   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&vocabFile, "vocab", "", "Vocabulary file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringSliceVar(&columns, "columns", nil, "Column field names, replacing those from the vocabulary file")
	rootCmd.PersistentFlags().StringSliceVar(&rows, "rows", nil, "Row field names, replacing those from the vocabulary file")
	rootCmd.PersistentFlags().StringSliceVar(&values, "values", nil, "Value field names, replacing those from the vocabulary file")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Reject unbalanced parentheses")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "Output format (json or yaml)")

	tokenCmd.Flags().StringVar(&subject, "subject", "", "Subject the token is issued to")
	tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:           "pivot",
	Short:         "pivot compiles pivot-table value formulas",
	Long:          `pivot tokenizes value-field formulas against a field vocabulary and prints their scope trees.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var compileCmd = &cobra.Command{
	Use:   "compile [field=formula ...]",
	Short: "Compile formulas into trees",
	Long: `Compile one formula per value field. With no arguments every value
field is compiled with its default formula, SUM(field).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		compiler, err := newCompiler(cmd)
		if err != nil {
			return err
		}

		formulas, err := parseAssignments(args, compiler.Values())
		if err != nil {
			return err
		}

		results, err := compiler.CompileFields(formulas)
		if encErr := serializer.Encode(output, results, cmd.OutOrStdout()); encErr != nil {
			return encErr
		}
		return err
	},
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize FORMULA",
	Short: "Print the raw token stream of a formula",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compiler, err := newCompiler(cmd)
		if err != nil {
			return err
		}

		tokens, err := compiler.Tokenize(args[0])
		if err != nil {
			return err
		}
		return serializer.Encode(output, tokens, cmd.OutOrStdout())
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the effective vocabulary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		compiler, err := newCompiler(cmd)
		if err != nil {
			return err
		}
		return serializer.Encode(output, compiler.Vocabulary(), cmd.OutOrStdout())
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the vocabulary endpoint",
	Long:  `Mint a bearer token signed with JWT_SECRET that grants vocabulary updates.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		tm := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod)

		token, err := tm.Generate(subject, auth.ScopeVocabularyWrite)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pivot %s\n", version)
	},
}

// newCompiler builds a compiler from the vocabulary file, the list flags and
// the environment, in increasing order of precedence for the file.
func newCompiler(cmd *cobra.Command) (*formula.Compiler, error) {
	cfg := config.Load()

	path := vocabFile
	if path == "" {
		path = cfg.Formula.VocabularyFile
	}

	vocab, err := config.LoadVocabulary(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("columns") {
		vocab.Columns = columns
	}
	if flags.Changed("rows") {
		vocab.Rows = rows
	}
	if flags.Changed("values") {
		vocab.Values = values
	}

	var opts []formula.Option
	if strict || cfg.Formula.StrictScopes {
		opts = append(opts, formula.WithStrictScopes())
	}
	return formula.NewCompiler(vocab, opts...)
}

// parseAssignments turns field=formula arguments into a formula map. With
// no arguments every value field gets an empty formula.
func parseAssignments(args []string, valueFields []string) (map[string]string, error) {
	formulas := make(map[string]string, len(args))
	if len(args) == 0 {
		for _, field := range valueFields {
			formulas[field] = ""
		}
		return formulas, nil
	}

	for _, arg := range args {
		field, text, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=formula, got %q", arg)
		}
		formulas[field] = strings.TrimSpace(text)
	}
	return formulas, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
