package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sunsplit/sunsplit/internal/engine"
	"github.com/sunsplit/sunsplit/internal/experiment"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		variants    string
		weights     string
		control     int
		expType     string
		confidence  int
		description string
		autoStop    bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new A/B experiment",
		Long: `Create a new A/B experiment with the specified name and variants.

Run without --variants for an interactive setup.

Examples:
  sunsplit create hero --variants "Current headline,Solar savings pitch"
  sunsplit create cta --variants "Sign Up,Get a Quote,Free Check" --weights "50,25,25"
  sunsplit create popup --variants "A,B" --type popup --confidence 99`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var defs []experiment.VariantDefinition
			var err error
			if variants == "" {
				defs, err = promptVariants()
			} else {
				defs, err = parseVariants(variants, weights, control)
			}
			if err != nil {
				return err
			}

			def := experiment.Definition{
				Name:            name,
				Description:     description,
				Type:            experiment.Type(expType),
				ConfidenceLevel: confidence,
				Variants:        defs,
			}
			if cmd.Flags().Changed("auto-stop") {
				def.AutoStop = &autoStop
			}

			return withEngine(func(eng *engine.Engine) error {
				exp, err := eng.Create(context.Background(), def)
				if err != nil {
					return fmt.Errorf("failed to create experiment: %w", err)
				}

				fmt.Printf("Created experiment '%s' (%s) with %d variants:\n", exp.Name, exp.ID, len(exp.Variants))
				for _, v := range exp.Variants {
					marker := ""
					if v.IsControl {
						marker = " (control)"
					}
					fmt.Printf("  %s: weight %.0f%%%s\n", v.Name, v.TrafficWeight, marker)
				}
				fmt.Printf("Confidence level: %d%%, auto-stop: %v\n", exp.ConfidenceLevel, exp.AutoStop)
				fmt.Printf("\nStart it with: sunsplit start %s\n", exp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated variant names (interactive prompt if omitted)")
	cmd.Flags().StringVarP(&weights, "weights", "w", "", "comma-separated traffic weights, 0-100 (default: even split)")
	cmd.Flags().IntVar(&control, "control", 0, "index of the control variant")
	cmd.Flags().StringVarP(&expType, "type", "t", "", "experiment type (popup, banner, landing-page)")
	cmd.Flags().IntVarP(&confidence, "confidence", "c", 0, "confidence level: 90, 95 or 99 (default 95)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "experiment description")
	cmd.Flags().BoolVar(&autoStop, "auto-stop", true, "complete automatically once significance is reached")

	return cmd
}

// parseVariants turns the --variants/--weights flags into definitions.
// Weights default to an even split across variants.
func parseVariants(variants, weights string, control int) ([]experiment.VariantDefinition, error) {
	names := strings.Split(variants, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("need at least 2 variants. Example: --variants \"A,B\"")
	}
	if control < 0 || control >= len(names) {
		return nil, fmt.Errorf("invalid control index: %d (have %d variants: 0-%d)", control, len(names), len(names)-1)
	}

	split := make([]float64, len(names))
	if weights == "" {
		even := 100.0 / float64(len(names))
		for i := range split {
			split[i] = even
		}
	} else {
		parts := strings.Split(weights, ",")
		if len(parts) != len(names) {
			return nil, fmt.Errorf("got %d weights for %d variants", len(parts), len(names))
		}
		for i, p := range parts {
			w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid weight %q", p)
			}
			split[i] = w
		}
	}

	defs := make([]experiment.VariantDefinition, len(names))
	for i, name := range names {
		defs[i] = experiment.VariantDefinition{
			Name:          name,
			IsControl:     i == control,
			TrafficWeight: split[i],
		}
	}
	return defs, nil
}

// promptVariants collects variants interactively: names until an empty
// entry, a weight each, then which one is the control.
func promptVariants() ([]experiment.VariantDefinition, error) {
	var defs []experiment.VariantDefinition

	for {
		label := fmt.Sprintf("Variant %d name", len(defs)+1)
		if len(defs) >= 2 {
			label += " (empty to finish)"
		}
		namePrompt := promptui.Prompt{Label: label}
		name, err := namePrompt.Run()
		if err != nil {
			if err == promptui.ErrInterrupt {
				os.Exit(0)
			}
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			if len(defs) >= 2 {
				break
			}
			fmt.Println("Need at least 2 variants.")
			continue
		}

		weightPrompt := promptui.Prompt{
			Label:   fmt.Sprintf("Traffic weight for %q (0-100)", name),
			Default: "50",
			Validate: func(input string) error {
				w, err := strconv.ParseFloat(input, 64)
				if err != nil || w < 0 || w > 100 {
					return fmt.Errorf("weight must be a number between 0 and 100")
				}
				return nil
			},
		}
		weightStr, err := weightPrompt.Run()
		if err != nil {
			if err == promptui.ErrInterrupt {
				os.Exit(0)
			}
			return nil, err
		}
		weight, _ := strconv.ParseFloat(weightStr, 64)

		defs = append(defs, experiment.VariantDefinition{Name: name, TrafficWeight: weight})
	}

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	controlPrompt := promptui.Select{
		Label: "Control variant",
		Items: names,
		Size:  len(names),
	}
	idx, _, err := controlPrompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return nil, err
	}
	defs[idx].IsControl = true

	return defs, nil
}
