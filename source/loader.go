package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/vectorseed/core"
)

const defaultConcurrency = 4

// Input is the result of loading records.
type Input struct {
	// Records are the mapped records in input order.
	Records []core.Record
	// Rejects are records that could not be mapped.
	Rejects []core.RecordFailure
	// Files names every file that was read, in order.
	Files []string
}

// Total returns the number of input records, including rejects.
func (in *Input) Total() int {
	return len(in.Records) + len(in.Rejects)
}

// FromRecords wraps records that were built in memory. Positions are
// assigned in slice order.
func FromRecords(records ...core.Record) *Input {
	in := &Input{Records: make([]core.Record, len(records))}
	for i, r := range records {
		r.Position = i
		in.Records[i] = r
	}
	return in
}

// Loader reads records from local files and S3.
type Loader struct {
	mapping     Mapping
	concurrency int
	logger      *slog.Logger

	s3Once sync.Once
	s3     S3API
	s3Err  error
}

// Option configures a Loader.
type Option func(*Loader)

// WithMapping sets the field mapping.
func WithMapping(m Mapping) Option {
	return func(l *Loader) {
		l.mapping = m
	}
}

// WithConcurrency sets how many files are read at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		l.concurrency = n
	}
}

// WithS3Client sets the client used for s3:// locations. Without it a
// client is built from the default AWS configuration on first use.
func WithS3Client(client S3API) Option {
	return func(l *Loader) {
		l.s3 = client
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		mapping:     DefaultMapping(),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.mapping.Validate(); err != nil {
		return nil, err
	}
	l.mapping = l.mapping.withDefaults()
	if l.concurrency < 1 {
		l.concurrency = 1
	}
	l.logger = l.logger.With("component", "source")
	return l, nil
}

// Load reads every record from the given locations. Files are read
// concurrently but records keep the order of their locations, then of their
// sorted file names, then of their position in the file.
func (l *Loader) Load(ctx context.Context, locations ...string) (*Input, error) {
	var files []file
	for _, loc := range locations {
		resolved, err := l.resolve(ctx, loc)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			l.logger.Warn("location matched no input files", "location", loc)
		}
		files = append(files, resolved...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, strings.Join(locations, ", "))
	}

	decoded := make([][]item, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, f := range files {
		g.Go(func() error {
			rc, err := f.open(gctx)
			if err != nil {
				return fmt.Errorf("open %s: %w", f.name, err)
			}
			defer rc.Close()

			items, err := decodeFile(rc, f.name, l.mapping.RecordsKey)
			if err != nil {
				return err
			}
			decoded[i] = items
			l.logger.Debug("read input file", "file", f.name, "records", len(items))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := &Input{Files: make([]string, len(files))}
	position := 0
	for i, items := range decoded {
		in.Files[i] = files[i].name
		for _, it := range items {
			rec, err := l.mapping.toRecord(it.value, position, it.origin)
			if err != nil {
				id := ""
				var invalid *core.InvalidRecordError
				if errors.As(err, &invalid) {
					id = invalid.ID
				}
				in.Rejects = append(in.Rejects, core.RecordFailure{ID: id, Position: position, Err: err})
			} else {
				in.Records = append(in.Records, rec)
			}
			position++
		}
	}

	l.logger.Info("loaded input", "files", len(files), "records", len(in.Records), "rejected", len(in.Rejects))
	return in, nil
}

func (l *Loader) resolve(ctx context.Context, location string) ([]file, error) {
	if !strings.HasPrefix(location, s3Scheme) {
		return resolveLocal(location)
	}
	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	return resolveS3(ctx, client, location)
}

func (l *Loader) s3Client(ctx context.Context) (S3API, error) {
	l.s3Once.Do(func() {
		if l.s3 != nil {
			return
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			l.s3Err = fmt.Errorf("load AWS configuration: %w", err)
			return
		}
		l.s3 = s3.NewFromConfig(cfg)
	})
	return l.s3, l.s3Err
}
