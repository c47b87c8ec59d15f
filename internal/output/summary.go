package output

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/backbone-generator/core"
	"github.com/signalsfoundry/backbone-generator/model"
)

const topStates = 5

var kindLabels = map[model.LinkKind]string{
	model.LinkCoreRing:     "RTIC-RTIC (anel regional)",
	model.LinkNationalRing: "RTIC-RTIC (anel nacional)",
	model.LinkCrossRegion:  "RTIC-RTIC (inter-regional)",
	model.LinkReflector:    "RTRR-RTIC",
	model.LinkPeering:      "RTPR-RTIC",
	model.LinkEdgePair:     "RTED-RTED",
	model.LinkEdgeToCore:   "RTED-RTIC",
	model.LinkMetroRing:    "SWAC-SWAC",
	model.LinkMetroToEdge:  "SWAC-RTED",
}

// Summary carries what resumo.txt needs besides the report itself.
type Summary struct {
	GeneratedAt time.Time
	Requested   int
	ConfigPath  string
	Seed        int64
	Dir         string
	Regions     []string // display order; UnknownRegion is appended when present
	Report      *core.Report
	Localities  int
}

// WriteSummary renders the human-readable run summary. Accented text is kept.
func WriteSummary(w io.Writer, s Summary) error {
	r := s.Report
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("\nRESUMO DA TOPOLOGIA GERADA\n")
	p("==========================\n\n")
	p("Data de geracao: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	p("Total de elementos: %d\n", s.Requested)
	p("Arquivo de configuração: %s\n", s.ConfigPath)
	p("Semente: %d\n", s.Seed)

	p("\nDISTRIBUICAO POR CAMADA:\n")
	p("------------------------\n")
	for _, l := range model.GeneratedLayers {
		p("%s (%s): %d elementos", l.Tier(), l, r.ByLayer[l])
		if want, ok := r.Requested[l]; ok && want != r.ByLayer[l] {
			p(" (cota %d)", want)
		}
		p("\n")
	}
	if n := r.ByLayer[model.LayerPTT]; n > 0 {
		p("PTT: %d elementos\n", n)
	}

	p("\nDISTRIBUICAO GEOGRAFICA:\n")
	p("------------------------\n")
	p("Regioes:\n")
	for _, name := range regionRows(s.Regions, r) {
		p("  %s: %d elementos\n", name, r.ByRegion[name])
	}
	p("\nEstados com mais elementos:\n")
	for _, sc := range r.TopStates(topStates) {
		p("  %s: %d elementos\n", sc.State, sc.Count)
	}

	p("\nCONEXÕES GERADAS:\n")
	p("-----------------\n")
	p("Total de conexões: %d\n", r.TotalConnections)
	p("Tipos:\n")
	for _, k := range model.LinkKinds {
		if n := r.Connections[k]; n > 0 {
			p("  %s: %d\n", kindLabels[k], n)
		}
	}
	p("Pares de borda: %d\n", r.EdgePairs)
	p("Grupos metro: %d\n", r.MetroGroups)
	p("Componentes conexos: %d\n", r.Components)

	if len(r.Skipped) > 0 {
		p("\nALOCACAO INCOMPLETA:\n")
		p("--------------------\n")
		for _, sf := range r.Skipped {
			p("  %s em %s: %d de %d (%s)\n", sf.Layer, sf.Region, sf.Placed, sf.Wanted, sf.Reason)
		}
	}

	p("\nARQUIVOS GERADOS:\n")
	p("-----------------\n")
	p("1. %s: %d registros\n", ElementsFile, r.Total)
	p("2. %s: %d registros\n", ConnectionsFile, r.TotalConnections)
	p("3. %s: %d registros\n", LocalitiesFile, s.Localities)
	p("\nPasta de saída: %s\n", s.Dir)

	return bw.Flush()
}

func regionRows(order []string, r *core.Report) []string {
	rows := make([]string, 0, len(order)+1)
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true
		rows = append(rows, name)
	}
	if !seen[model.UnknownRegion] && r.ByRegion[model.UnknownRegion] > 0 {
		rows = append(rows, model.UnknownRegion)
	}
	return rows
}
