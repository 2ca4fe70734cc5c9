package commands

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/app"
	"github.com/kailas-cloud/shelfrec/internal/config"
	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
	logpkg "github.com/kailas-cloud/shelfrec/internal/logger"
	"github.com/kailas-cloud/shelfrec/internal/repository/export"
	"github.com/kailas-cloud/shelfrec/internal/usecase/cover"
	"github.com/kailas-cloud/shelfrec/internal/usecase/refresh"
	shelfrec "github.com/kailas-cloud/shelfrec/pkg/sdk"
)

// source answers queries either in-process or through a shelfrecd server.
type source interface {
	Domains(ctx context.Context) ([]shelfrec.DomainStatus, error)
	Recommend(ctx context.Context, k kind.Kind, q query.Query) (view, error)
	Watch(ctx context.Context, k kind.Kind, q query.Query, interval time.Duration,
		fn func(tick int, v view) error) error
	// Export writes the CSV of the latest result.
	Export(ctx context.Context, k kind.Kind, w io.Writer) error
	// SaveImages writes one PNG per item of v into dir and returns the paths.
	SaveImages(ctx context.Context, v view, dir string) ([]string, error)
	Upload(ctx context.Context, k kind.Kind, r io.Reader) (shelfrec.DomainStatus, error)
	Limits() limits
	Close()
}

// limits bound user input the same way the server does.
type limits struct {
	maxTopN     int
	defaultTopN map[kind.Kind]int
	refreshMin  time.Duration
	refreshMax  time.Duration
	refreshDef  time.Duration
	parallelism int
}

func openSource(ctx context.Context, opts *globalOptions) (source, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := logpkg.NewLogger("cli", firstNonEmpty(opts.logLevel, cfg.Logging.Level))
	if err != nil {
		return nil, err
	}

	lim := limitsFrom(cfg)
	if opts.server != "" {
		client, err := shelfrec.New(opts.server, shelfrec.WithAPIKey(opts.apiKey))
		if err != nil {
			return nil, err
		}
		return &remoteSource{client: client, limits: lim}, nil
	}

	ctx = logpkg.ContextWithLogger(ctx, logger)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Catalogs.LoadAll(ctx); err != nil {
		logger.Warn("Some datasets failed to load", zap.Error(err))
	}
	return &localSource{app: a, limits: lim, logger: logger}, nil
}

// loadConfig reads --config or builds defaults around --data-dir.
func loadConfig(opts *globalOptions) (config.Config, error) {
	if opts.configPath != "" {
		cfg, err := config.LoadFile(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		return cfg, nil
	}

	cfg := config.Default()
	cfg.Datasets.Dir = opts.dataDir
	cfg.Datasets.Books = "books.csv"
	cfg.Datasets.Courses = "courses.csv"
	cfg.Datasets.Movies = "movies.csv"
	cfg.Logging.Level = ""
	return cfg, nil
}

func limitsFrom(cfg config.Config) limits {
	def := make(map[kind.Kind]int, len(cfg.Search.DefaultTopN))
	for name, n := range cfg.Search.DefaultTopN {
		def[kind.Kind(name)] = n
	}
	return limits{
		maxTopN:     cfg.Search.MaxTopN,
		defaultTopN: def,
		refreshMin:  config.Seconds(cfg.Refresh.MinSec),
		refreshMax:  config.Seconds(cfg.Refresh.MaxSec),
		refreshDef:  config.Seconds(cfg.Refresh.DefaultSec),
		parallelism: cfg.Images.Parallelism,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// localSource runs the engine in-process and keeps the latest result.
type localSource struct {
	app    *app.App
	limits limits
	logger *zap.Logger

	last    result.Result
	hasLast bool
}

func (s *localSource) Domains(_ context.Context) ([]shelfrec.DomainStatus, error) {
	statuses := s.app.Catalogs.Status()
	out := make([]shelfrec.DomainStatus, 0, len(statuses))
	for _, st := range statuses {
		ds := shelfrec.DomainStatus{
			Name:      string(st.Kind),
			Available: st.Available,
			Items:     st.Items,
			Source:    st.Source,
		}
		if st.Err != nil {
			ds.Error = st.Err.Error()
		}
		out = append(out, ds)
	}
	return out, nil
}

func (s *localSource) Recommend(ctx context.Context, k kind.Kind, q query.Query) (view, error) {
	res, err := s.app.Recommend.Recommend(ctx, k, q)
	if err != nil {
		return view{}, err
	}
	s.last, s.hasLast = res, true
	return viewFromResult(res), nil
}

func (s *localSource) Watch(
	ctx context.Context, k kind.Kind, q query.Query, interval time.Duration,
	fn func(tick int, v view) error,
) error {
	runner := refresh.NewRunner()
	err := runner.Run(ctx, interval, func(ctx context.Context, tick int) error {
		v, err := s.Recommend(ctx, k, q)
		if err != nil {
			return err
		}
		return fn(tick, v)
	})
	return ignoreStop(ctx, err)
}

func (s *localSource) Export(_ context.Context, k kind.Kind, w io.Writer) error {
	if !s.hasLast || s.last.Kind() != k {
		return fmt.Errorf("%w: nothing to export for %s", domain.ErrNoResult, k)
	}
	d, err := descriptor.For(k)
	if err != nil {
		return err
	}
	return export.WriteCSV(w, d, s.last)
}

func (s *localSource) SaveImages(ctx context.Context, v view, dir string) ([]string, error) {
	d, err := descriptor.For(v.kind)
	if err != nil {
		return nil, err
	}
	if !s.hasLast || !d.HasImage() {
		return nil, nil
	}
	reqs := cover.Requests(d, s.last)
	imgs := s.app.Covers.ResolveAll(ctx, reqs, s.limits.parallelism)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	paths := make([]string, 0, len(imgs))
	for i, img := range imgs {
		p := imagePath(dir, v.kind, i+1)
		f, err := os.Create(p) //nolint:gosec // path built from flag and rank
		if err != nil {
			return paths, fmt.Errorf("create %s: %w", p, err)
		}
		encErr := png.Encode(f, img)
		closeErr := f.Close()
		if err := errors.Join(encErr, closeErr); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Upload only validates the file locally: the catalog is replaced for this
// process, nothing is written back.
func (s *localSource) Upload(ctx context.Context, k kind.Kind, r io.Reader) (shelfrec.DomainStatus, error) {
	st, err := s.app.Catalogs.Replace(ctx, k, r)
	if err != nil {
		return shelfrec.DomainStatus{}, err
	}
	return shelfrec.DomainStatus{Name: string(st.Kind), Available: st.Available, Items: st.Items, Source: st.Source}, nil
}

func (s *localSource) Limits() limits { return s.limits }

func (s *localSource) Close() {
	s.app.Close()
	_ = s.logger.Sync()
}

// remoteSource delegates to a shelfrecd server.
type remoteSource struct {
	client *shelfrec.Client
	limits limits
}

func (s *remoteSource) Domains(ctx context.Context) ([]shelfrec.DomainStatus, error) {
	return s.client.Domains(ctx)
}

func (s *remoteSource) Recommend(ctx context.Context, k kind.Kind, q query.Query) (view, error) {
	recs, err := s.client.Recommend(ctx, shelfrec.Domain(k), sdkQuery(q))
	if err != nil {
		return view{}, err
	}
	return viewFromRemote(k, recs), nil
}

func (s *remoteSource) Watch(
	ctx context.Context, k kind.Kind, q query.Query, interval time.Duration,
	fn func(tick int, v view) error,
) error {
	err := s.client.Stream(ctx, shelfrec.Domain(k), sdkQuery(q), interval,
		func(tick int, recs shelfrec.Recommendations) error {
			return fn(tick, viewFromRemote(k, recs))
		})
	return ignoreStop(ctx, err)
}

func (s *remoteSource) Export(ctx context.Context, k kind.Kind, w io.Writer) error {
	data, err := s.client.Export(ctx, shelfrec.Domain(k))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *remoteSource) SaveImages(ctx context.Context, v view, dir string) ([]string, error) {
	d, err := descriptor.For(v.kind)
	if err != nil {
		return nil, err
	}
	if !d.HasImage() {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	paths := make([]string, 0, len(v.cards))
	for _, c := range v.cards {
		data, err := s.client.Image(ctx, shelfrec.Domain(v.kind), c.fields[d.ImageField], d.ImageCaption)
		if err != nil {
			return paths, err
		}
		p := imagePath(dir, v.kind, c.rank)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (s *remoteSource) Upload(ctx context.Context, k kind.Kind, r io.Reader) (shelfrec.DomainStatus, error) {
	return s.client.UploadDataset(ctx, shelfrec.Domain(k), r)
}

func (s *remoteSource) Limits() limits { return s.limits }

func (s *remoteSource) Close() {}

func sdkQuery(q query.Query) shelfrec.Query {
	return shelfrec.Query{
		Title:     q.Title(),
		Category:  q.Category(),
		Secondary: q.Secondary(),
		TopN:      q.TopN(),
	}
}

func imagePath(dir string, k kind.Kind, rank int) string {
	return filepath.Join(dir, string(k)+"_"+strconv.Itoa(rank)+".png")
}

// ignoreStop treats an interrupted watch as a normal exit.
func ignoreStop(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, refresh.ErrStopped) || errors.Is(err, errTicksDone) {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
