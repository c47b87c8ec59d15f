// Package output persists a generated topology as the three record files
// consumed by drawing tools plus a plain-text summary.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/backbone-generator/core"
	"github.com/signalsfoundry/backbone-generator/internal/logging"
)

// File names inside a run directory.
const (
	ElementsFile    = "elementos.csv"
	ConnectionsFile = "conexoes.csv"
	LocalitiesFile  = "localidades.csv"
	SummaryFile     = "resumo.txt"
)

const dirTimestamp = "20060102150405"

// Options configures a Writer.
type Options struct {
	Root       string // parent of the run directory, "." when empty
	ConfigPath string // echoed in the summary
	Now        func() time.Time
	Logger     logging.Logger
}

// Writer lays out one run directory per call to Write.
type Writer struct {
	root       string
	configPath string
	now        func() time.Time
	log        logging.Logger
}

func NewWriter(opts Options) *Writer {
	w := &Writer{
		root:       opts.Root,
		configPath: opts.ConfigPath,
		now:        opts.Now,
		log:        opts.Logger,
	}
	if w.root == "" {
		w.root = "."
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.log == nil {
		w.log = logging.Noop()
	}
	return w
}

// DirName returns the run directory name for a request of total elements.
func DirName(total int, at time.Time) string {
	return fmt.Sprintf("TOPOLOGIA_%d_%s", total, at.Format(dirTimestamp))
}

// Write creates TOPOLOGIA_{total}_{timestamp} under the root and fills it.
// It returns the directory path.
func (w *Writer) Write(ctx context.Context, total int, seed int64, topo *core.Topology) (string, error) {
	now := w.now()
	dir := filepath.Join(w.root, DirName(total, now))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	locs := topo.Localities()
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ElementsFile, func(f io.Writer) error { return WriteElements(f, topo.Elements) }},
		{ConnectionsFile, func(f io.Writer) error { return WriteConnections(f, topo.Connections) }},
		{LocalitiesFile, func(f io.Writer) error { return WriteLocalities(f, locs) }},
		{SummaryFile, func(f io.Writer) error {
			return WriteSummary(f, Summary{
				GeneratedAt: now,
				Requested:   total,
				ConfigPath:  w.configPath,
				Seed:        seed,
				Dir:         dir,
				Regions:     topo.RegionTable().Names(),
				Report:      topo.Report(),
				Localities:  len(locs),
			})
		}},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return "", err
		}
		w.log.Debug(ctx, "output file written", logging.String("file", f.name))
	}

	w.log.Info(ctx, "topology written",
		logging.String("dir", dir),
		logging.Int("elements", len(topo.Elements)),
		logging.Int("connections", len(topo.Connections)),
	)
	return dir, nil
}

func writeFile(path string, write func(io.Writer) error) (retErr error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("close %s: %w", filepath.Base(path), err)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
