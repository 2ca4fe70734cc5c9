package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/repository/export"
	"github.com/kailas-cloud/shelfrec/internal/usecase/refresh"
)

var errTicksDone = errors.New("tick limit reached")

type recommendOptions struct {
	title     string
	category  string
	secondary string
	top       int
	watch     bool
	interval  time.Duration
	ticks     int
	exportTo  string
	imagesDir string
}

func newRecommendCommand(g *globalOptions) *cobra.Command {
	o := &recommendOptions{}

	cmd := &cobra.Command{
		Use:     "recommend <books|courses|movies>",
		Aliases: []string{"rec", "r"},
		Short:   "Show top-rated items matching the filters",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kind.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrUnknownDomain, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := openSource(ctx, g)
			if err != nil {
				return err
			}
			defer src.Close()

			return runRecommend(ctx, cmd.OutOrStdout(), src, k, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.title, "title", "t", "", "title search (substring, then fuzzy)")
	f.StringVarP(&o.category, "category", "g", "", "genre (books, movies) or difficulty (courses)")
	f.StringVarP(&o.secondary, "secondary", "a", "", "author (books); ignored for courses and movies")
	f.IntVarP(&o.top, "top", "n", 0, "number of results (default depends on the domain)")
	f.BoolVarP(&o.watch, "watch", "w", false, "re-run the query periodically until interrupted")
	f.DurationVarP(&o.interval, "interval", "i", 0, "refresh interval for --watch (clamped to the configured bounds)")
	f.IntVar(&o.ticks, "ticks", 0, "stop --watch after this many refreshes (0 = until interrupted)")
	f.StringVarP(&o.exportTo, "export", "o", "", "write the latest result as CSV to this file or directory (- for stdout)")
	f.StringVar(&o.imagesDir, "images", "", "save cover and poster images of the result into this directory")

	return cmd
}

func runRecommend(ctx context.Context, out io.Writer, src source, k kind.Kind, o *recommendOptions) error {
	lim := src.Limits()
	topN, err := resolveTopN(o.top, k, lim)
	if err != nil {
		return err
	}
	q := query.New(o.title, o.category, o.secondary, topN)

	show := func(v view) error {
		renderCards(out, v)
		if o.imagesDir != "" {
			paths, err := src.SaveImages(ctx, v, o.imagesDir)
			if err != nil {
				return err
			}
			if len(paths) > 0 {
				fmt.Fprintf(out, "saved %d images to %s\n", len(paths), o.imagesDir)
			}
		}
		return nil
	}

	if !o.watch {
		v, err := src.Recommend(ctx, k, q)
		if err != nil {
			return err
		}
		if err := show(v); err != nil {
			return err
		}
		return exportLatest(ctx, out, src, k, o.exportTo)
	}

	interval := refresh.ClampInterval(o.interval, lim.refreshMin, lim.refreshMax, lim.refreshDef)
	err = src.Watch(ctx, k, q, interval, func(tick int, v view) error {
		fmt.Fprintf(out, "--- refresh %d at %s (every %s) ---\n", tick+1, time.Now().Format(time.TimeOnly), interval)
		if err := show(v); err != nil {
			return err
		}
		if o.ticks > 0 && tick+1 >= o.ticks {
			return errTicksDone
		}
		return nil
	})
	if err != nil {
		return err
	}
	return exportLatest(context.WithoutCancel(ctx), out, src, k, o.exportTo)
}

// resolveTopN applies the domain default to 0 and rejects values outside [1, max].
func resolveTopN(top int, k kind.Kind, lim limits) (int, error) {
	if top == 0 {
		if n := lim.defaultTopN[k]; n > 0 {
			return n, nil
		}
		return 1, nil
	}
	if top < 1 || top > lim.maxTopN {
		return 0, fmt.Errorf("%w: --top must be between 1 and %d", domain.ErrInvalidQuery, lim.maxTopN)
	}
	return top, nil
}

func exportLatest(ctx context.Context, out io.Writer, src source, k kind.Kind, target string) error {
	if target == "" {
		return nil
	}
	if target == "-" {
		return src.Export(ctx, k, out)
	}

	if st, err := os.Stat(target); err == nil && st.IsDir() {
		target = filepath.Join(target, export.Filename(k, time.Now()))
	}

	f, err := os.Create(target) //nolint:gosec // operator-chosen output path
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := src.Export(ctx, k, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	fmt.Fprintf(out, "exported to %s\n", target)
	return nil
}
