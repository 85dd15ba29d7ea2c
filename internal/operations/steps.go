package operations

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"pfastats/internal/config"
	"pfastats/internal/dataprocessing"
	"pfastats/internal/dataset"
	"pfastats/internal/errors"
	"pfastats/internal/exporter"
	"pfastats/internal/files"
	"pfastats/internal/forecast"
	"pfastats/internal/infrastructure"
	"pfastats/internal/rates"
)

// Step IDs in execution order.
const (
	StepIDOutcomes      = "outcomes"
	StepIDCustodyTables = "custody_tables"
	StepIDOffences      = "offences"
	StepIDCustodySeries = "custody_series"
	StepIDPopulation    = "population"
	StepIDProjection    = "projection"
	StepIDCombine       = "combine"
)

// NewPipelineSteps wires the full pipeline in execution order.
func NewPipelineSteps(cfg *config.Config, logger *slog.Logger) []Step {
	discovery := files.NewDiscovery("")
	tables := exporter.NewTableExporter(&cfg.Paths)

	return []Step{
		NewOutcomesStep(cfg, logger, discovery, tables),
		NewCustodyTablesStep(cfg, logger, tables),
		NewOffencesStep(cfg, logger, tables),
		NewCustodySeriesStep(logger),
		NewPopulationStep(cfg, logger, discovery, tables),
		NewProjectionStep(logger, forecast.NewSelector(logger, forecast.SelectorParams{
			TrendYears:          cfg.Pipeline.TrendYears,
			BaseYears:           cfg.Pipeline.BaseYears,
			MovingAverageWindow: cfg.Pipeline.MovingAverageWindow,
		})),
		NewCombineStep(cfg, logger,
			rates.NewCombiner(logger, cfg.Pipeline.RatePer),
			exporter.NewRateExporter(&cfg.Paths, &cfg.Pipeline)),
	}
}

// OutcomesStep loads the raw outcomes-by-offence extracts, cleans and
// filters them, and writes the grouped sentence-outcome table.
type OutcomesStep struct {
	cfg       *config.Config
	logger    *slog.Logger
	discovery *files.Discovery
	tables    *exporter.TableExporter
}

// NewOutcomesStep creates the outcomes ingest step.
func NewOutcomesStep(cfg *config.Config, logger *slog.Logger, discovery *files.Discovery, tables *exporter.TableExporter) *OutcomesStep {
	return &OutcomesStep{cfg: cfg, logger: logger, discovery: discovery, tables: tables}
}

func (s *OutcomesStep) ID() string   { return StepIDOutcomes }
func (s *OutcomesStep) Name() string { return "Load and filter sentencing outcomes" }

// Validate always passes; this is the first step and reads only from disk.
func (s *OutcomesStep) Validate(state *RunState) error { return nil }

// Execute loads every matching outcomes extract. The quarterly publication
// splits history across multiple files, so all matches are concatenated.
func (s *OutcomesStep) Execute(ctx context.Context, state *RunState) error {
	matches, err := s.discovery.FindFilesByPattern(s.cfg.Paths.RawDir, s.cfg.Pipeline.OutcomesPattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return errors.NewPreconditionError("sentencing",
			fmt.Sprintf("no outcomes files matching %s in %s", s.cfg.Pipeline.OutcomesPattern, s.cfg.Paths.RawDir))
	}

	var records []dataprocessing.SentencingRecord
	for _, file := range matches {
		loaded, err := dataprocessing.LoadOutcomes(file.Path)
		if err != nil {
			return err
		}
		records = append(records, loaded...)
	}

	cleaned := dataprocessing.CleanOutcomes(records)
	filtered := dataprocessing.ApplyFilters(ctx, s.logger, cleaned, dataprocessing.DefaultFilterRules())
	if len(filtered) == 0 {
		return errors.NewPreconditionError("sentencing", "no records survive the publication filters")
	}

	grouped, err := dataprocessing.GroupByOutcome(filtered)
	if err != nil {
		return err
	}
	if err := s.tables.ExportObservations("interim/pfa_sentence_outcomes.csv", grouped, []string{"outcome"}); err != nil {
		return err
	}

	state.Artifacts.Outcomes = filtered
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, "interim/pfa_sentence_outcomes.csv")
	return nil
}

// CustodyTablesStep reduces the filtered outcomes to immediate custody,
// bands sentence lengths and writes one wide custody table per category.
type CustodyTablesStep struct {
	cfg    *config.Config
	logger *slog.Logger
	tables *exporter.TableExporter
}

// NewCustodyTablesStep creates the custody table step.
func NewCustodyTablesStep(cfg *config.Config, logger *slog.Logger, tables *exporter.TableExporter) *CustodyTablesStep {
	return &CustodyTablesStep{cfg: cfg, logger: logger, tables: tables}
}

func (s *CustodyTablesStep) ID() string   { return StepIDCustodyTables }
func (s *CustodyTablesStep) Name() string { return "Produce custody tables by sentence length" }

func (s *CustodyTablesStep) Validate(state *RunState) error {
	if len(state.Artifacts.Outcomes) == 0 {
		return errors.NewPreconditionError("sentencing", "no outcome records available")
	}
	return nil
}

func (s *CustodyTablesStep) Execute(ctx context.Context, state *RunState) error {
	custody := dataprocessing.FilterCustodialSentences(state.Artifacts.Outcomes)
	banded := dataprocessing.BandSentenceLengths(custody)

	lengths, err := dataprocessing.GroupBySentenceLength(banded)
	if err != nil {
		return err
	}
	if err := s.tables.ExportObservations("interim/pfa_custody_sentence_lengths.csv", lengths, []string{"sentence_len"}); err != nil {
		return err
	}
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, "interim/pfa_custody_sentence_lengths.csv")

	for _, category := range dataprocessing.Categories {
		series, err := dataprocessing.CategorySeries(lengths, category)
		if err != nil {
			return err
		}
		series = series.FromYear(s.cfg.Pipeline.YearFrom)

		wide := dataprocessing.Crosstab(series)
		filename := fmt.Sprintf(s.cfg.Pipeline.CustodyTableTemplate, category)
		if err := s.tables.ExportWideTable(filename, wide); err != nil {
			return err
		}
		state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, filename)

		s.logger.InfoContext(ctx, "custody table written",
			slog.String("category", string(category)),
			slog.String("file", filename),
			slog.Int("areas", len(wide.Rows)))

		if category == dataprocessing.CategoryAll {
			state.Artifacts.CustodyWide = wide
		}
	}

	return nil
}

// OffencesStep breaks the latest year's custodial sentences down by offence
// group: a long counts table plus a per-area offence-share crosstab.
type OffencesStep struct {
	cfg    *config.Config
	logger *slog.Logger
	tables *exporter.TableExporter
}

// NewOffencesStep creates the offence breakdown step.
func NewOffencesStep(cfg *config.Config, logger *slog.Logger, tables *exporter.TableExporter) *OffencesStep {
	return &OffencesStep{cfg: cfg, logger: logger, tables: tables}
}

func (s *OffencesStep) ID() string   { return StepIDOffences }
func (s *OffencesStep) Name() string { return "Break down custodial sentences by offence" }

func (s *OffencesStep) Validate(state *RunState) error {
	if len(state.Artifacts.Outcomes) == 0 {
		return errors.NewPreconditionError("sentencing", "no outcome records available")
	}
	return nil
}

func (s *OffencesStep) Execute(ctx context.Context, state *RunState) error {
	custody := dataprocessing.FilterCustodialSentences(state.Artifacts.Outcomes)
	grouped, err := dataprocessing.GroupByOffence(custody)
	if err != nil {
		return err
	}
	if len(grouped) == 0 {
		return errors.NewPreconditionError("sentencing", "no custodial sentences to break down by offence")
	}

	maxYear := 0
	for _, o := range grouped {
		if o.Year > maxYear {
			maxYear = o.Year
		}
	}
	latest := dataset.FilterYears(grouped, maxYear, 0)

	countsFile := "interim/pfa_custody_offences.csv"
	if err := s.tables.ExportObservations(countsFile, latest, []string{"offence"}); err != nil {
		return err
	}
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, countsFile)

	proportions := dataprocessing.OffenceProportions(latest)
	filename := fmt.Sprintf(s.cfg.Pipeline.OffencesTableTemplate, maxYear)
	if err := s.tables.ExportWideTable(filename, proportions); err != nil {
		return err
	}
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, filename)

	s.logger.InfoContext(ctx, "offence proportions written",
		slog.String("file", filename),
		slog.Int("year", maxYear),
		slog.Int("areas", len(proportions.Rows)),
		slog.Int("offence_groups", len(proportions.Columns)))

	return nil
}

// CustodySeriesStep melts the all-sentences custody table back to the long
// annual series the rate calculation joins against. Going through the wide
// table keeps the melt's trailing-column contract exercised on every run.
type CustodySeriesStep struct {
	logger *slog.Logger
}

// NewCustodySeriesStep creates the custody melt step.
func NewCustodySeriesStep(logger *slog.Logger) *CustodySeriesStep {
	return &CustodySeriesStep{logger: logger}
}

func (s *CustodySeriesStep) ID() string   { return StepIDCustodySeries }
func (s *CustodySeriesStep) Name() string { return "Melt custody table to annual series" }

func (s *CustodySeriesStep) Validate(state *RunState) error {
	if state.Artifacts.CustodyWide == nil {
		return errors.NewPreconditionError("custody", "no custody table available")
	}
	return nil
}

func (s *CustodySeriesStep) Execute(ctx context.Context, state *RunState) error {
	points, err := dataprocessing.MeltCustodyTable(state.Artifacts.CustodyWide)
	if err != nil {
		return err
	}

	series := dataset.NewSeries(points)
	minYear, _ := series.MinYear()
	maxYear, _ := series.MaxYear()
	s.logger.InfoContext(ctx, "custody series ready",
		slog.Int("areas", len(series.Areas())),
		slog.Int("min_year", minYear),
		slog.Int("max_year", maxYear))

	state.Artifacts.Custody = series
	return nil
}

// PopulationStep builds the per-PFA adult female population series from the
// latest ONS estimates and the LA-to-PFA lookup.
type PopulationStep struct {
	cfg       *config.Config
	logger    *slog.Logger
	discovery *files.Discovery
	tables    *exporter.TableExporter
}

// NewPopulationStep creates the population preparation step.
func NewPopulationStep(cfg *config.Config, logger *slog.Logger, discovery *files.Discovery, tables *exporter.TableExporter) *PopulationStep {
	return &PopulationStep{cfg: cfg, logger: logger, discovery: discovery, tables: tables}
}

func (s *PopulationStep) ID() string   { return StepIDPopulation }
func (s *PopulationStep) Name() string { return "Prepare population series" }

func (s *PopulationStep) Validate(state *RunState) error {
	if state.Artifacts.Custody == nil {
		return errors.NewPreconditionError("population", "custody series must exist before population preparation")
	}
	return nil
}

func (s *PopulationStep) Execute(ctx context.Context, state *RunState) error {
	onsFile, err := s.discovery.LatestMatching(s.cfg.Paths.RawDir, s.cfg.Pipeline.PopulationPattern)
	if err != nil {
		return errors.NewPreconditionError("population", err.Error())
	}
	lookupFile, err := s.discovery.LatestMatching(s.cfg.Paths.RawDir, s.cfg.Pipeline.LookupPattern)
	if err != nil {
		return errors.NewPreconditionError("population", err.Error())
	}

	raw, err := dataprocessing.LoadPopulationCSV(onsFile.Path)
	if err != nil {
		return err
	}
	lookup, err := dataprocessing.LoadAreaLookup(lookupFile.Path)
	if err != nil {
		return err
	}

	cleaned := dataprocessing.CleanPopulation(ctx, s.logger, raw)
	points := dataprocessing.AssignPFA(ctx, s.logger, cleaned, lookup)

	// The population denominator only needs the years the custody data
	// covers.
	custodyMin, _ := state.Artifacts.Custody.MinYear()
	prepared := dataprocessing.PreparePopulation(points, s.cfg.Pipeline.AreaRenames, custodyMin)
	if prepared.Len() == 0 {
		return errors.NewPreconditionError("population", "population series is empty after preparation")
	}

	minYear, _ := prepared.MinYear()
	maxYear, _ := prepared.MaxYear()
	interimFile := fmt.Sprintf("interim/pfa_population_%d_%d.csv", minYear, maxYear)
	if err := s.tables.ExportSeries(interimFile, "freq", prepared); err != nil {
		return err
	}

	state.Artifacts.Population = prepared
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, interimFile)
	return nil
}

// ProjectionStep extends the population series over the custody years it
// does not cover, using the backtest-selected projection method. When the
// population already covers every custody year the step skips itself.
type ProjectionStep struct {
	logger   *slog.Logger
	selector *forecast.Selector
}

// NewProjectionStep creates the projection step.
func NewProjectionStep(logger *slog.Logger, selector *forecast.Selector) *ProjectionStep {
	return &ProjectionStep{logger: logger, selector: selector}
}

func (s *ProjectionStep) ID() string   { return StepIDProjection }
func (s *ProjectionStep) Name() string { return "Project population for uncovered years" }

func (s *ProjectionStep) Validate(state *RunState) error {
	if state.Artifacts.Custody == nil || state.Artifacts.Population == nil {
		return errors.NewPreconditionError("population", "custody and population series must both exist")
	}
	return nil
}

func (s *ProjectionStep) Execute(ctx context.Context, state *RunState) error {
	custodyMax, ok := state.Artifacts.Custody.MaxYear()
	if !ok {
		return errors.NewPreconditionError("custody", "custody series is empty")
	}
	populationMax, ok := state.Artifacts.Population.MaxYear()
	if !ok {
		return errors.NewPreconditionError("population", "population series is empty")
	}

	if custodyMax <= populationMax {
		state.Artifacts.ExtendedPopulation = state.Artifacts.Population
		state.GetStep(s.ID()).Skip(fmt.Sprintf("population data covers all custody years through %d", populationMax))
		s.logger.InfoContext(ctx, "population projection not needed",
			slog.Int("custody_max_year", custodyMax),
			slog.Int("population_max_year", populationMax))
		return nil
	}

	s.logger.InfoContext(ctx, "population data ends before custody data, projecting",
		slog.Int("custody_max_year", custodyMax),
		slog.Int("population_max_year", populationMax))

	selection, err := s.selector.Select(ctx, state.Artifacts.Population, custodyMax)
	if err != nil {
		return err
	}

	state.Artifacts.Selection = selection
	state.Artifacts.ExtendedPopulation = forecast.ExtendSeries(state.Artifacts.Population, selection.Projections)
	return nil
}

// CombineStep joins the (possibly extended) population series against the
// custody series, derives the imprisonment rates and writes the final
// tables.
type CombineStep struct {
	cfg      *config.Config
	logger   *slog.Logger
	combiner *rates.Combiner
	exporter *exporter.RateExporter
}

// NewCombineStep creates the rate combination step.
func NewCombineStep(cfg *config.Config, logger *slog.Logger, combiner *rates.Combiner, rateExporter *exporter.RateExporter) *CombineStep {
	return &CombineStep{cfg: cfg, logger: logger, combiner: combiner, exporter: rateExporter}
}

func (s *CombineStep) ID() string   { return StepIDCombine }
func (s *CombineStep) Name() string { return "Combine custody and population into rates" }

func (s *CombineStep) Validate(state *RunState) error {
	if state.Artifacts.Custody == nil || state.Artifacts.ExtendedPopulation == nil {
		return errors.NewPreconditionError("rates", "custody and extended population series must both exist")
	}
	return nil
}

func (s *CombineStep) Execute(ctx context.Context, state *RunState) error {
	rows, audit := s.combiner.Combine(ctx, state.Artifacts.ExtendedPopulation, state.Artifacts.Custody)
	state.Artifacts.RateRows = rows
	state.Artifacts.Audit = audit

	infrastructure.AddSpanEvent(ctx, "join_audit", map[string]string{
		"rows":                    strconv.Itoa(len(rows)),
		"missing_population_rows": strconv.Itoa(audit.MissingPopulation.Rows),
		"missing_custody_rows":    strconv.Itoa(audit.MissingCustody.Rows),
	})

	rateFile, err := s.exporter.ExportRateTable(rows)
	if err != nil {
		return err
	}
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, rateFile)

	publication := rates.Pivot(rows)
	pubFile, err := s.exporter.ExportPublicationTable(publication)
	if err != nil {
		return err
	}
	state.Artifacts.OutputFiles = append(state.Artifacts.OutputFiles, pubFile)

	s.logger.InfoContext(ctx, "rate tables written",
		slog.String("rate_table", rateFile),
		slog.String("publication_table", pubFile),
		slog.Int("rows", len(rows)))

	return nil
}
