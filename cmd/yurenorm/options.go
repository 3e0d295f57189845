package main

import (
	"github.com/spf13/cobra"

	"github.com/hazyhaar/yurenorm/pkg/normalize"
)

// optionFlags holds per-invocation overrides of the configured options.
type optionFlags struct {
	unifyLevel    string
	expansion     string
	taigen        bool
	yougen        bool
	customSynonym bool
}

func (o *optionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.unifyLevel, "unify-level", "", "lexeme, word_form or abbreviation")
	f.StringVar(&o.expansion, "expansion", "", "any or from_another")
	f.BoolVar(&o.taigen, "taigen", true, "Normalize nouns")
	f.BoolVar(&o.yougen, "yougen", false, "Normalize verbs and adjectives")
	f.BoolVar(&o.customSynonym, "custom-synonym", true, "Apply custom synonym overrides")
}

// apply overlays the flags the user set on base.
func (o *optionFlags) apply(cmd *cobra.Command, base normalize.Config) normalize.Config {
	f := cmd.Flags()
	if f.Changed("unify-level") {
		base.UnifyLevel = normalize.UnifyLevel(o.unifyLevel)
	}
	if f.Changed("expansion") {
		base.Expansion = normalize.ExpansionPolicy(o.expansion)
	}
	if f.Changed("taigen") {
		base.Taigen = o.taigen
	}
	if f.Changed("yougen") {
		base.Yougen = o.yougen
	}
	if f.Changed("custom-synonym") {
		base.CustomSynonym = o.customSynonym
	}
	return base
}
