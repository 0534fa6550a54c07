package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"prism-backend/engine"
	"prism-backend/models"
	"prism-backend/tei"

	"github.com/spf13/cobra"
)

// =============================================================================
// ROOT
// =============================================================================

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "prismctl",
		Short:        "Inspect prism translation documents offline",
		SilenceUsage: true,
	}

	root.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newRankCmd(),
		newResolveCmd(),
		newBalanceCmd(),
		newDiffCmd(),
		newRipplesCmd(),
		newExportCmd(),
	)
	return root
}

// loadDocument reads, parses and sanitizes a document file.
// Anomalies go to stderr so stdout stays machine-readable.
func loadDocument(cmd *cobra.Command, path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("read document: %w", err)
	}
	format, err := engine.FormatFromFilename(path)
	if err != nil {
		return models.Document{}, err
	}
	doc, err := engine.ParseDocument(data, format)
	if err != nil {
		return models.Document{}, err
	}
	doc, anomalies := engine.Sanitize(doc)
	for _, a := range anomalies {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", a)
	}
	return doc, nil
}

func parseStrategies(names []string) (models.Strategies, error) {
	var s models.Strategies
	for _, name := range names {
		switch models.StrategyAxis(strings.ToLower(strings.TrimSpace(name))) {
		case models.AxisLiteral:
			s.Literal = true
		case models.AxisNatural:
			s.Natural = true
		case models.AxisForeignizing:
			s.Foreignizing = true
		default:
			return models.Strategies{}, fmt.Errorf("unknown strategy %q", name)
		}
	}
	return s, nil
}

// parsePicks reads "line=index" pairs
func parsePicks(pairs []string) (models.Selection, error) {
	sel := make(models.Selection, len(pairs))
	for _, p := range pairs {
		lineStr, idxStr, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("pick %q must look like line=index", p)
		}
		line, err := strconv.Atoi(lineStr)
		if err != nil {
			return nil, fmt.Errorf("pick %q: bad line: %w", p, err)
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, fmt.Errorf("pick %q: bad index: %w", p, err)
		}
		sel[line] = idx
	}
	return sel, nil
}

func choiceFor(doc models.Document, line int) (models.Choice, error) {
	c, ok := doc.ChoiceFor(line)
	if !ok {
		return models.Choice{}, fmt.Errorf("line %d has no alternatives", line)
	}
	return c, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// CODEC COMMANDS
// =============================================================================

func newEncodeCmd() *cobra.Command {
	var picks []string
	cmd := &cobra.Command{
		Use:   "encode [document]",
		Short: "Print the share token for a set of picks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			sel, err := parsePicks(picks)
			if err != nil {
				return err
			}
			for line, idx := range sel {
				c, err := choiceFor(doc, line)
				if err != nil {
					return err
				}
				if !engine.InRange(c, idx) {
					return fmt.Errorf("line %d has no alternative %d", line, idx)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), engine.Encode(doc, sel))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&picks, "pick", "p", nil, "pick as line=index (repeatable)")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [document] [token]",
		Short: "Show which alternative a share token selects on each line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			_, skipped := engine.DecodeDetailed(args[1])
			for _, pos := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: segment %d is not an integer\n", pos)
			}
			sel := engine.Normalize(doc, engine.DecodeForDocument(doc, args[1]))

			out := cmd.OutOrStdout()
			for _, c := range doc.Target.Choices {
				alt, ok := engine.EffectiveAlternative(c, sel)
				if !ok {
					continue
				}
				marker := " "
				if sel.Has(c.Line) {
					marker = "*"
				}
				fmt.Fprintf(out, "%s line %d [%d] %s\n", marker, c.Line, engine.Effective(c, sel), alt.Text)
			}
			return nil
		},
	}
}

// =============================================================================
// RANKING COMMANDS
// =============================================================================

func newRankCmd() *cobra.Command {
	var (
		line       int
		strategies []string
	)
	cmd := &cobra.Command{
		Use:   "rank [document]",
		Short: "Rank one line's alternatives under the active strategies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			active, err := parseStrategies(strategies)
			if err != nil {
				return err
			}
			c, err := choiceFor(doc, line)
			if err != nil {
				return err
			}
			for _, r := range engine.Rank(c, active) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.2f\t%s\n", r.Index, r.Score, r.Alternative.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&line, "line", "l", 0, "target line")
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", nil, "active strategy axes")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var strategies []string
	cmd := &cobra.Command{
		Use:   "resolve [document]",
		Short: "Pick the best alternative on every line and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			active, err := parseStrategies(strategies)
			if err != nil {
				return err
			}
			sel := engine.ResolveAll(doc, active)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token: %s\n", engine.Encode(doc, sel))
			for _, text := range engine.Surface(doc, sel) {
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", nil, "active strategy axes")
	return cmd
}

func newBalanceCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "balance [document]",
		Short: "Print the strategy balance of a reading as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			sel := engine.Normalize(doc, engine.DecodeForDocument(doc, token))
			return writeJSON(cmd.OutOrStdout(), engine.AxisBalance(doc, sel))
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "share token (defaults when empty)")
	return cmd
}

// =============================================================================
// CONSEQUENCE COMMANDS
// =============================================================================

func newDiffCmd() *cobra.Command {
	var line, from, to int
	cmd := &cobra.Command{
		Use:   "diff [document]",
		Short: "Show the emphasis gained and lost by swapping alternatives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			c, err := choiceFor(doc, line)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("from") {
				from = c.Selected
			}
			if !engine.InRange(c, to) {
				return fmt.Errorf("line %d has no alternative %d", line, to)
			}

			out := cmd.OutOrStdout()
			diff := engine.DiffEmphasis(c, from, to)
			fmt.Fprintf(out, "impact: %s\n", engine.ImpactLabel(c.Alternatives[to]))
			fmt.Fprintf(out, "gained: %s\n", strings.Join(diff.Gained, ", "))
			fmt.Fprintf(out, "lost: %s\n", strings.Join(diff.Lost, ", "))
			if c.Stakes != "" {
				fmt.Fprintf(out, "stakes: %s\n", c.Stakes)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&line, "line", "l", 0, "target line")
	cmd.Flags().IntVar(&from, "from", 0, "previous alternative (defaults to the document default)")
	cmd.Flags().IntVar(&to, "to", 0, "new alternative")
	return cmd
}

func newRipplesCmd() *cobra.Command {
	var line int
	cmd := &cobra.Command{
		Use:   "ripples [document]",
		Short: "List the lines a pick on one line ripples into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			if _, err := choiceFor(doc, line); err != nil {
				return err
			}
			for _, r := range engine.Propagate(doc, line, 0) {
				fmt.Fprintf(cmd.OutOrStdout(), "line %d\t%s\t%.2f\t%s\n", r.AffectsLine, r.Direction, r.Magnitude, r.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&line, "line", "l", 0, "line the pick is made on")
	return cmd
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

func newExportCmd() *cobra.Command {
	var token, output string
	cmd := &cobra.Command{
		Use:   "export [document]",
		Short: "Render a reading as a TEI critical apparatus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[0])
			if err != nil {
				return err
			}
			sel := engine.Normalize(doc, engine.DecodeForDocument(doc, token))
			apparatus := engine.Apparatus(doc, sel)

			if output == "" {
				return tei.Render(cmd.OutOrStdout(), doc.Meta.ID, apparatus)
			}
			data, err := tei.RenderBytes(doc.Meta.ID, apparatus)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "share token (defaults when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
