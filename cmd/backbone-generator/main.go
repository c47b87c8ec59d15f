package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/backbone-generator/core"
	"github.com/signalsfoundry/backbone-generator/internal/config"
	"github.com/signalsfoundry/backbone-generator/internal/logging"
	"github.com/signalsfoundry/backbone-generator/internal/observability"
	"github.com/signalsfoundry/backbone-generator/internal/output"
)

const (
	minElements  = 30
	warnElements = 1000
)

var errTooFewElements = errors.New("element count below minimum")

// Config holds the parsed command line.
type Config struct {
	Elements        int
	ConfigPath      string
	Seed            int64
	OutputRoot      string
	MetricsTextfile string
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, log := logging.WithRunLogger(ctx, logging.NewFromEnv())
	cfg.Seed = resolveSeed(cfg.Seed)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), observability.RunAttributes{
		RunID: logging.RunIDFromContext(ctx),
		Seed:  cfg.Seed,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Error(err))
		os.Exit(1)
	}

	dir, err := run(ctx, cfg, log)
	observability.ShutdownWithTimeout(context.Background(), shutdown, log)
	if err != nil {
		log.Error(ctx, "generation failed", logging.Error(err))
		os.Exit(1)
	}
	if err := printResult(os.Stdout, dir); err != nil {
		log.Error(ctx, "failed to print summary", logging.Error(err))
		os.Exit(1)
	}
}

const usageText = `backbone-generator gera uma topologia sintetica de backbone nacional.

Arquivos gerados em TOPOLOGIA_[QTD]_[TIMESTAMP]/:
  elementos.csv    equipamentos (elemento, camada, nivel, siteid)
  conexoes.csv     conexoes entre equipamentos (ponta-a, ponta-b, tipo)
  localidades.csv  coordenadas DMS e regiao de cada equipamento
  resumo.txt       estatisticas da topologia

Exemplos:
  backbone-generator
  backbone-generator -e 500 -c meu_config.json -seed 7

Quantidade minima: 30 elementos. Acima de 1000 a geracao continua, mas
ferramentas de desenho ficam lentas.

Configuracao (JSON ou YAML), por exemplo:
  "PROPORCAO_CAMADAS": {"RTIC": 0.02, "RTRR": 0.03, "RTPR": 0.03, "RTED": 0.12, "SWAC": 0.80}
  "PROPORCOES_REGIAO": {"Sudeste": 0.5, ...}
  "REGIOES_HIERARQUIA": {"Sudeste": {"hubs": ["Sao Paulo"], "sub-regioes": {"Paulista": ["SP"]}}}
  "CIDADES_UF": {"SP": [["Novo Municipio", -23.55, -46.63], ...]}

Opcoes:
`

// resolveSeed turns the zero seed into a clock-based one so the value can
// be logged and replayed.
func resolveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// printResult announces the output directory and echoes its summary.
func printResult(w io.Writer, dir string) error {
	if _, err := fmt.Fprintf(w, "Topologia gerada com sucesso na pasta: %s\n", dir); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(dir, output.SummaryFile))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("backbone-generator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageText)
		fs.PrintDefaults()
	}

	var cfg Config
	fs.IntVar(&cfg.Elements, "e", 300, "total number of elements to generate")
	fs.StringVar(&cfg.ConfigPath, "c", "configs/config.json", "path to the JSON or YAML configuration file")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed; 0 picks a time-based seed that is logged for replay")
	fs.StringVar(&cfg.OutputRoot, "o", ".", "directory under which the TOPOLOGIA_* folder is created")
	fs.StringVar(&cfg.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics of the run to this file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.Elements < minElements {
		return Config{}, fmt.Errorf("%w: got %d, need at least %d", errTooFewElements, cfg.Elements, minElements)
	}
	return cfg, nil
}

// run loads the configuration, generates the topology and writes it out.
// It returns the output directory.
func run(ctx context.Context, cfg Config, log logging.Logger) (string, error) {
	if cfg.Elements > warnElements {
		log.Warn(ctx, "large topology requested; generation may be slow",
			logging.Int("elements", cfg.Elements),
		)
	}

	file, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return "", err
	}
	log.Info(ctx, "configuration loaded",
		logging.String("path", cfg.ConfigPath),
		logging.Int("regions", len(file.Regions)),
		logging.Int("states", len(file.Cities)),
		logging.Int("exchanges", len(file.Exchanges)),
	)
	for _, state := range file.UnassignedStates() {
		log.Warn(ctx, "state belongs to no region; its sites report region Unknown",
			logging.String("state", state),
		)
	}

	seed := resolveSeed(cfg.Seed)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewGeneratorCollector(reg)
	if err != nil {
		return "", fmt.Errorf("init metrics: %w", err)
	}

	gen, err := core.NewGenerator(file.CoreConfig(),
		core.WithSeed(seed),
		core.WithLogger(log),
		core.WithMetricsRecorder(collector),
	)
	if err != nil {
		return "", err
	}
	topo, err := gen.Generate(ctx, cfg.Elements)
	if err != nil {
		return "", err
	}

	writer := output.NewWriter(output.Options{
		Root:       cfg.OutputRoot,
		ConfigPath: cfg.ConfigPath,
		Logger:     log,
	})
	dir, err := writer.Write(ctx, cfg.Elements, seed, topo)
	if err != nil {
		return "", err
	}

	if cfg.MetricsTextfile != "" {
		if err := collector.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return "", err
		}
		log.Info(ctx, "metrics written", logging.String("path", cfg.MetricsTextfile))
	}
	return dir, nil
}
