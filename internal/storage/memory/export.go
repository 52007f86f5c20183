package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frontierstation/damagecast/pkg/core"
)

// Export is the JSON document written for one round.
type Export struct {
	Round      string      `json:"round"`
	StartedAt  time.Time   `json:"startedAt"`
	ExportedAt time.Time   `json:"exportedAt"`
	Hits       []Hit       `json:"hits"`
	Narrations []Narration `json:"narrations"`
	Summary    Summary     `json:"summary"`
}

// Hit is one hit as exported.
type Hit struct {
	ID           uint           `json:"id"`
	Tick         uint64         `json:"tick"`
	Time         time.Time      `json:"time"`
	AttackerID   core.EntityID  `json:"attackerId"`
	VictimID     *core.EntityID `json:"victimId,omitempty"`
	AttackerCell core.CellID    `json:"attackerCell"`
	VictimCell   core.CellID    `json:"victimCell"`
	Target       string         `json:"target"`
	Region       string         `json:"region,omitempty"`
	Weapon       string         `json:"weapon"`
	Flags        []string       `json:"flags"`
	Raw          core.Damage    `json:"raw"`
	Applied      core.Damage    `json:"applied"`
	Result       core.HitResult `json:"result"`
	Dropped      bool           `json:"dropped,omitempty"`
}

// Narration is one queued message as exported.
type Narration struct {
	ID       uint          `json:"id"`
	Tick     uint64        `json:"tick"`
	Time     time.Time     `json:"time"`
	Observer core.EntityID `json:"observer"`
	Handle   core.Handle   `json:"handle"`
	Text     string        `json:"text"`
}

// Summary totals the round.
type Summary struct {
	Hits       int         `json:"hits"`
	Blocked    int         `json:"blocked"`
	Dropped    int         `json:"dropped"`
	Narrations int         `json:"narrations"`
	Applied    core.Damage `json:"applied"`
}

// exportJSON writes the round to a JSON file, gzipped when configured.
func (b *Backend) exportJSON() error {
	export := BuildExport(b.round, b.started, b.now(), b.hits, b.narrations)
	path, err := WriteExport(b.cfg.OutputDir, b.cfg.CompressOutput, export)
	if err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}

// ExportFilename names the file a round is exported to.
func ExportFilename(round string, started time.Time, compress bool) string {
	name := strings.ReplaceAll(round, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, "/", "_")
	filename := fmt.Sprintf("%s_%s.json", name, started.Format("20060102_150405"))
	if compress {
		filename += ".gz"
	}
	return filename
}

// WriteExport writes export into dir and returns the file path.
func WriteExport(dir string, compress bool, export Export) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, ExportFilename(export.Round, export.StartedAt, compress))

	var err error
	if compress {
		err = writeGzipJSON(path, export)
	} else {
		err = writeJSON(path, export)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// BuildExport assembles the export document for one round.
func BuildExport(round string, started, exportedAt time.Time, hits []core.HitRecord, narrations []core.NarrationRecord) Export {
	export := Export{
		Round:      round,
		StartedAt:  started,
		ExportedAt: exportedAt,
		Hits:       make([]Hit, 0, len(hits)),
		Narrations: make([]Narration, 0, len(narrations)),
	}

	for _, h := range hits {
		flags := h.Flags
		if flags == nil {
			flags = []string{}
		}
		export.Hits = append(export.Hits, Hit{
			ID:           h.ID,
			Tick:         h.Tick,
			Time:         h.Time,
			AttackerID:   h.AttackerID,
			VictimID:     h.VictimID,
			AttackerCell: h.AttackerCell,
			VictimCell:   h.VictimCell,
			Target:       string(h.Target),
			Region:       h.Region,
			Weapon:       h.Weapon,
			Flags:        flags,
			Raw:          h.Raw,
			Applied:      h.Applied,
			Result:       h.Result,
			Dropped:      h.Dropped,
		})

		export.Summary.Hits++
		if h.Result == core.Blocked {
			export.Summary.Blocked++
		}
		if h.Dropped {
			export.Summary.Dropped++
		} else {
			export.Summary.Applied = export.Summary.Applied.Add(h.Applied)
		}
	}

	for _, n := range narrations {
		export.Narrations = append(export.Narrations, Narration{
			ID:       n.ID,
			Tick:     n.Tick,
			Time:     n.Time,
			Observer: n.Observer,
			Handle:   n.Handle,
			Text:     n.Text,
		})
	}
	export.Summary.Narrations = len(narrations)

	return export
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
