// Команда geocell пересчитывает ячейки геосетки у пользователей и товаров.
// Запускать после смены GEO_CELL_RES.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/agromarket-backend/internal/config"
	"github.com/ignatzorin/agromarket-backend/internal/db"
	"github.com/ignatzorin/agromarket-backend/internal/logger"
	"github.com/ignatzorin/agromarket-backend/internal/repository"
	"github.com/ignatzorin/agromarket-backend/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "geocell",
		Short:         "Обслуживание геосетки",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(backfillCommand())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "geocell:", err)
		os.Exit(1)
	}
}

func backfillCommand() *cobra.Command {
	var (
		resolution int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Пересчитать geo_cell для всех записей с координатами",
		Long: `Пересчитывает geo_cell у пользователей и товаров с сохранённой локацией.

Примеры:
  geocell backfill --dry-run
  geocell backfill --resolution 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Env)

			res := cfg.GeoCellResolution
			if cmd.Flags().Changed("resolution") {
				if resolution < config.MinGeoCellResolution || resolution > config.MaxGeoCellResolution {
					return fmt.Errorf("resolution должен быть в диапазоне %d..%d", config.MinGeoCellResolution, config.MaxGeoCellResolution)
				}
				res = resolution
			}

			conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			svc := service.NewGeoCellService(repository.NewUserRepository(conn), repository.NewProductRepository(conn))
			reports, err := svc.Backfill(cmd.Context(), res, dryRun)
			if err != nil {
				return err
			}
			for _, r := range reports {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&resolution, "resolution", config.DefaultGeoCellResolution, "разрешение сетки (ячеек на градус)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "только посчитать изменения, ничего не записывать")
	return cmd
}
