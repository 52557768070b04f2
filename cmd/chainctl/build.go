package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
)

func requestFlags(cmd *cobra.Command) {
	cmd.Flags().String("requester", "", "requester identity")
	cmd.Flags().String("type", string(approval.RequestCash), "request type (cash, it, purchase_order)")
	cmd.Flags().String("category", "", "request category (e.g. mission, hardware)")
	cmd.Flags().Int64("amount", 0, "request amount in minor units")
	cmd.Flags().StringToString("attr", nil, "extra request attributes (key=value)")
	_ = cmd.MarkFlagRequired("requester")
}

func requestFromFlags(cmd *cobra.Command) (string, approval.RequestType, approval.RequestMetadata, error) {
	requester, _ := cmd.Flags().GetString("requester")
	rawType, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	amount, _ := cmd.Flags().GetInt64("amount")
	attrs, _ := cmd.Flags().GetStringToString("attr")

	t, ok := approval.ParseRequestType(rawType)
	if !ok {
		return "", "", approval.RequestMetadata{}, fmt.Errorf("unknown request type %q", rawType)
	}
	return requester, t, approval.RequestMetadata{
		Category:   category,
		Amount:     amount,
		Attributes: attrs,
	}, nil
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the approval chain for a requester",
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, t, meta, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			chain, err := a.Builder.Build(requester, t, meta)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return renderChainJSON(cmd.OutOrStdout(), chain)
			}
			renderChainTable(cmd.OutOrStdout(), chain)
			return nil
		},
	}
	requestFlags(cmd)
	return cmd
}
