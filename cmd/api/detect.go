package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"recipe-vision/internal/app"
	"recipe-vision/internal/pkg/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// detectCommand 辨識單張圖片中的食材
func detectCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [image]",
		Short: "Detect ingredients in an image",
		Long:  `Detect ingredients in a single image using the first available detection tier.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(v, func(ctx context.Context, a *app.App) error {
				items, err := a.Detector.Detect(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"success":        true,
					"detected_items": items,
				})
			})
		},
	}
}

// recipesCommand 根據食材生成食譜
func recipesCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "recipes [ingredient]...",
		Short: "Generate recipes from ingredients",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(v, func(ctx context.Context, a *app.App) error {
				doc, err := a.Recipes.Generate(ctx, args)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"success": true,
					"recipes": doc,
				})
			})
		},
	}
}

// withServices 初始化服務後執行 fn，收到中斷信號時取消
func withServices(v *viper.Viper, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := initialize(v)
	if err != nil {
		return err
	}
	defer common.Sync()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer cancel()
	}

	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
