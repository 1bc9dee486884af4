package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-vision/internal/api"
	"recipe-vision/internal/app"
	"recipe-vision/internal/pkg/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// serveCommand 啟動 HTTP 服務
func serveCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(v)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port")
	if err := v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
		panic(fmt.Sprintf("error binding flag port: %v", err))
	}

	return cmd
}

func serve(v *viper.Viper) error {
	cfg, err := initialize(v)
	if err != nil {
		return err
	}
	defer common.Sync()
	defer common.FlushSentry(2 * time.Second)

	services, err := app.New(cfg)
	if err != nil {
		common.LogError("Failed to initialize services", zap.Error(err))
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			common.LogWarn("Failed to release resources", zap.Error(err))
		}
	}()

	// 設置路由
	router, err := api.SetupRouter(cfg, services)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		return err
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			common.LogError("Failed to start server", zap.Error(err))
			return err
		}
		return nil
	case <-quit:
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return err
	}

	common.LogInfo("Server exited")
	return nil
}
