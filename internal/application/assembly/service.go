// Package assembly provides the application-level use cases of mcbuilder:
// building a macrocomplex model from input files and listing the sequence
// clusters those files produce.
package assembly

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	domainAsm "github.com/turtacn/mcbuilder/internal/domain/assembly"
	"github.com/turtacn/mcbuilder/internal/domain/chain"
	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/internal/domain/template"
	"github.com/turtacn/mcbuilder/internal/infrastructure/formats"
	"github.com/turtacn/mcbuilder/internal/infrastructure/formats/pdb"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mcbuilder/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/mcbuilder/internal/infrastructure/storage/minio"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// Pipeline stage names used in logs and metrics.
const (
	StageLoad     = "load"
	StageCluster  = "cluster"
	StageIndex    = "index"
	StageAssemble = "assemble"
	StageWrite    = "write"
	StageUpload   = "upload"
)

// Service defines the application operations.
type Service interface {
	// Build runs the whole pipeline and writes the model.  A warning error
	// (see errors.IsWarning) is returned together with a complete result.
	Build(ctx context.Context, input *BuildInput) (*BuildResult, error)
	// Clusters reads the inputs and reports the sequence clusters.
	Clusters(ctx context.Context, input *ClustersInput) (*ClusterTable, error)
}

// ModelStore receives written models.
type ModelStore interface {
	UploadFile(ctx context.Context, runID, file string, metadata map[string]string) (*minio.UploadResult, error)
}

// BuildInput contains the parameters of one build.
type BuildInput struct {
	Paths         []string
	Output        string
	Stoichiometry string
	Clustering    cluster.Config
	Assembly      domainAsm.Config
	// Timeout bounds the assembly search; zero means none.
	Timeout time.Duration
	Upload  bool
}

// ClustersInput contains the parameters of a cluster listing.
type ClustersInput struct {
	Paths      []string
	Clustering cluster.Config
}

// InputSummary counts what was read.
type InputSummary struct {
	FASTAFiles       int `json:"fasta_files"`
	PDBFiles         int `json:"pdb_files"`
	SequenceChains   int `json:"sequence_chains"`
	StructuralChains int `json:"structural_chains"`
}

// ClusterRow describes one sequence cluster.
type ClusterRow struct {
	Label          string   `json:"label"`
	Representative string   `json:"representative"`
	Members        []string `json:"members"`
	Structural     int      `json:"structural"`
	Length         int      `json:"length"`
}

// ClusterTable is the result of Clusters.
type ClusterTable struct {
	Inputs      InputSummary `json:"inputs"`
	Clusters    []ClusterRow `json:"clusters"`
	Comparisons int          `json:"comparisons"`
}

// ChainRow describes one placed chain of the model.
type ChainRow struct {
	ChainID  string  `json:"chain_id"`
	Cluster  string  `json:"cluster"`
	Source   string  `json:"source"`
	Template string  `json:"template,omitempty"`
	RMSD     float64 `json:"rmsd"`
	Residues int     `json:"residues"`
}

// ModelReport describes the written model.
type ModelReport struct {
	Index       int        `json:"index"`
	Path        string     `json:"path"`
	Composition string     `json:"composition"`
	Satisfied   bool       `json:"satisfied"`
	RMSDSum     float64    `json:"rmsd_sum"`
	Chains      []ChainRow `json:"chains"`
	ObjectKey   string     `json:"object_key,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// StatsReport summarises the search.
type StatsReport struct {
	Mode           string         `json:"mode"`
	StatesExplored int            `json:"states_explored"`
	TerminalStates int            `json:"terminal_states"`
	Attempts       int            `json:"attempts"`
	Rejections     map[string]int `json:"rejections"`
	Superpositions int            `json:"superpositions"`
	Elapsed        time.Duration  `json:"elapsed_ns"`
}

// BuildResult is the result of Build.
type BuildResult struct {
	RunID         string       `json:"run_id"`
	Inputs        InputSummary `json:"inputs"`
	Clusters      []ClusterRow `json:"clusters"`
	Templates     int          `json:"templates"`
	Stoichiometry string       `json:"stoichiometry,omitempty"`
	Model         *ModelReport `json:"model"`
	Stats         StatsReport  `json:"stats"`
	Warning       string       `json:"warning,omitempty"`
}

// Options wires the service's collaborators.  Only Aligner is required.
type Options struct {
	Aligner *cluster.Aligner
	// Store is used when BuildInput.Upload is set.
	Store ModelStore
	// Metrics may be nil.
	Metrics *prometheus.RunMetrics
	// CacheBackend labels cache metrics.
	CacheBackend string
	Workers      int
	Logger       logging.Logger
	// NewRunID defaults to uuid.NewString.
	NewRunID func() string
}

type serviceImpl struct {
	aligner      *cluster.Aligner
	store        ModelStore
	metrics      *prometheus.RunMetrics
	cacheBackend string
	workers      int
	logger       logging.Logger
	newRunID     func() string
}

// NewService creates the application service.
func NewService(opts Options) Service {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Aligner == nil {
		opts.Aligner = cluster.NewAligner(nil, opts.Logger)
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	if opts.CacheBackend == "" {
		opts.CacheBackend = "memory"
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &serviceImpl{
		aligner:      opts.Aligner,
		store:        opts.Store,
		metrics:      opts.Metrics,
		cacheBackend: opts.CacheBackend,
		workers:      opts.Workers,
		logger:       opts.Logger,
		newRunID:     opts.NewRunID,
	}
}

// ModelPath returns the file the model with the given index is written to:
// "<index>_<name>" next to output.
func ModelPath(output string, index int) string {
	dir, name := filepath.Split(output)
	return filepath.Join(dir, fmt.Sprintf("%d_%s", index, name))
}

func (s *serviceImpl) stage(name string, start time.Time) {
	d := time.Since(start)
	s.logger.Debug("stage finished", logging.String("stage", name), logging.Duration("elapsed", d))
	if s.metrics != nil {
		prometheus.RecordStage(s.metrics, name, d)
	}
}

func (s *serviceImpl) load(ctx context.Context, paths []string) ([]*chain.Record, InputSummary, error) {
	start := time.Now()
	defer s.stage(StageLoad, start)

	in, err := formats.Discover(paths, s.logger)
	if err != nil {
		return nil, InputSummary{}, err
	}
	records, err := formats.Load(ctx, in, s.workers, s.logger)
	if err != nil {
		return nil, InputSummary{}, err
	}
	sum := InputSummary{FASTAFiles: len(in.FASTA), PDBFiles: len(in.PDB)}
	for _, r := range records {
		if r.HasStructure() {
			sum.StructuralChains++
		} else {
			sum.SequenceChains++
		}
	}
	if s.metrics != nil {
		prometheus.RecordInputs(s.metrics, sum.PDBFiles, sum.FASTAFiles, sum.StructuralChains, sum.SequenceChains)
	}
	return records, sum, nil
}

func (s *serviceImpl) clusterRecords(ctx context.Context, cfg cluster.Config, records []*chain.Record) (*cluster.Result, error) {
	start := time.Now()
	defer s.stage(StageCluster, start)

	clusterer, err := cluster.NewClusterer(cfg, s.aligner, s.logger)
	if err != nil {
		return nil, err
	}
	hits0, misses0 := s.aligner.Stats()
	res, err := clusterer.Cluster(ctx, records)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		hits, misses := s.aligner.Stats()
		prometheus.RecordClustering(s.metrics, len(res.Groups), res.Comparisons)
		prometheus.RecordCache(s.metrics, s.cacheBackend, hits-hits0, misses-misses0)
	}
	return res, nil
}

func clusterRows(res *cluster.Result) []ClusterRow {
	rows := make([]ClusterRow, 0, len(res.Groups))
	for _, g := range res.Groups {
		row := ClusterRow{
			Label:          g.Label,
			Representative: g.Representative.Key(),
			Structural:     len(g.Structural()),
			Length:         len(g.Representative.Sequence),
		}
		for _, m := range g.Members {
			row.Members = append(row.Members, m.Key())
		}
		rows = append(rows, row)
	}
	return rows
}

// Clusters implements Service.
func (s *serviceImpl) Clusters(ctx context.Context, input *ClustersInput) (*ClusterTable, error) {
	records, sum, err := s.load(ctx, input.Paths)
	if err != nil {
		return nil, err
	}
	res, err := s.clusterRecords(ctx, input.Clustering, records)
	if err != nil {
		return nil, err
	}
	return &ClusterTable{Inputs: sum, Clusters: clusterRows(res), Comparisons: res.Comparisons}, nil
}

// Build implements Service.
func (s *serviceImpl) Build(ctx context.Context, input *BuildInput) (res *BuildResult, err error) {
	if input.Output == "" {
		return nil, errors.NewValidationError("output", "output path is required")
	}
	var stoich domainAsm.Stoichiometry
	if input.Stoichiometry != "" {
		if stoich, err = domainAsm.ParseStoichiometry(input.Stoichiometry); err != nil {
			return nil, err
		}
	}
	asm, err := domainAsm.NewAssembler(input.Assembly, s.aligner, s.logger)
	if err != nil {
		return nil, err
	}

	runID := s.newRunID()
	log := s.logger.With(logging.String("run_id", runID))
	defer func() {
		if s.metrics == nil {
			return
		}
		switch {
		case err == nil:
			prometheus.RecordRun(s.metrics, prometheus.OutcomeOK)
		case errors.IsWarning(err):
			prometheus.RecordRun(s.metrics, prometheus.OutcomeWarning)
		default:
			prometheus.RecordRun(s.metrics, prometheus.OutcomeError)
		}
	}()

	records, sum, err := s.load(ctx, input.Paths)
	if err != nil {
		return nil, err
	}
	clusters, err := s.clusterRecords(ctx, input.Clustering, records)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	index, err := template.NewBuilder(s.workers, s.logger).Build(ctx, records, clusters)
	s.stage(StageIndex, start)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		prometheus.RecordTemplates(s.metrics, index.Len(), index.Sources())
	}

	start = time.Now()
	actx := ctx
	if input.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, input.Timeout)
		defer cancel()
	}
	out, warn := asm.Assemble(actx, domainAsm.Input{Clusters: clusters, Index: index, Stoichiometry: stoich})
	s.stage(StageAssemble, start)
	if warn != nil && !errors.IsWarning(warn) {
		return nil, warn
	}

	res = &BuildResult{
		RunID:     runID,
		Inputs:    sum,
		Clusters:  clusterRows(clusters),
		Templates: index.Len(),
		Stats:     statsReport(out.Stats),
	}
	if stoich != nil {
		res.Stoichiometry = stoich.String()
	}
	if warn != nil {
		res.Warning = warn.Error()
	}
	if s.metrics != nil {
		prometheus.RecordAssembly(s.metrics, prometheus.AssemblySample{
			Mode:       out.Stats.Mode,
			States:     out.Stats.StatesExplored,
			Terminal:   out.Stats.TerminalStates,
			Attempts:   out.Stats.Attempts,
			Fits:       out.Stats.Fits,
			Rejections: res.Stats.Rejections,
			Chains:     out.Model.Len(),
			RMSDSum:    out.Model.RMSDSum(),
			Elapsed:    out.Stats.Elapsed,
		})
	}

	start = time.Now()
	report, err := writeModel(input.Output, 0, out)
	s.stage(StageWrite, start)
	if err != nil {
		return nil, err
	}
	res.Model = report
	log.Info("The final complex was saved",
		logging.String("path", report.Path),
		logging.String("composition", report.Composition),
		logging.Int("chains", len(report.Chains)))

	if input.Upload {
		if err := s.upload(ctx, runID, res); err != nil {
			return nil, err
		}
	}
	return res, warn
}

func statsReport(st domainAsm.Stats) StatsReport {
	rej := make(map[string]int, len(st.Rejections))
	for reason, n := range st.Rejections {
		rej[string(reason)] = n
	}
	return StatsReport{
		Mode:           st.Mode,
		StatesExplored: st.StatesExplored,
		TerminalStates: st.TerminalStates,
		Attempts:       st.Attempts,
		Rejections:     rej,
		Superpositions: st.Fits,
		Elapsed:        st.Elapsed,
	}
}

func writeModel(output string, index int, out *domainAsm.Result) (*ModelReport, error) {
	path := ModelPath(output, index)
	if err := pdb.WriteFile(path, out.Model); err != nil {
		return nil, err
	}
	report := &ModelReport{
		Index:       index,
		Path:        path,
		Composition: out.Model.Stoichiometry(),
		Satisfied:   out.Satisfied,
		RMSDSum:     out.Model.RMSDSum(),
	}
	for i, c := range out.Model.Chains() {
		report.Chains = append(report.Chains, ChainRow{
			ChainID:  string(pdb.ChainIDs[i]),
			Cluster:  c.Label,
			Source:   c.SourceKey,
			Template: c.TemplateID,
			RMSD:     c.RMSD,
			Residues: len(c.Residues),
		})
	}
	return report, nil
}

func (s *serviceImpl) upload(ctx context.Context, runID string, res *BuildResult) error {
	if s.store == nil {
		return errors.New(errors.ErrCodeStorageUnavailable, "upload requested but no model store is configured")
	}
	start := time.Now()
	defer s.stage(StageUpload, start)

	meta := map[string]string{
		"run-id":      runID,
		"composition": res.Model.Composition,
		"chains":      fmt.Sprint(len(res.Model.Chains)),
		"satisfied":   fmt.Sprint(res.Model.Satisfied),
	}
	if res.Stoichiometry != "" {
		meta["stoichiometry"] = res.Stoichiometry
	}
	up, err := s.store.UploadFile(ctx, runID, res.Model.Path, meta)
	if err != nil {
		return err
	}
	res.Model.ObjectKey = up.ObjectKey
	res.Model.URL = up.URL
	return nil
}
