package core

import (
	"context"
	"fmt"

	"epub2pdf/pkg/assemble"
	"epub2pdf/pkg/config"
	"epub2pdf/pkg/extract"
	"epub2pdf/pkg/interfaces"
	"epub2pdf/pkg/logger"
	"epub2pdf/pkg/metadata"
	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// Pipeline runs the conversion stages for a single job: extraction or
// unpacking, batch rasterization, assembly and metadata. Stage order is
// fixed; every stage error is typed so the orchestrator can attribute
// the failure.
type Pipeline struct {
	config    *config.Config
	logger    *logger.Logger
	sources   []interfaces.PageSource
	ebook     *extract.EbookUnpacker
	processor interfaces.ChunkProcessor
	assembler interfaces.Assembler
	metadata  interfaces.MetadataWriter
}

// NewPipeline wires the pipeline components for one batch run
func NewPipeline(cfg *config.Config, log *logger.Logger, processor interfaces.ChunkProcessor) *Pipeline {
	ebook := extract.NewEbookUnpacker(cfg, log)
	return &Pipeline{
		config:    cfg,
		logger:    log,
		sources:   []interfaces.PageSource{extract.NewArchiveExtractor(cfg, log), ebook},
		ebook:     ebook,
		processor: processor,
		assembler: assemble.NewPDFAssembler(log),
		metadata:  metadata.NewWriter(cfg, log),
	}
}

// Run converts one job. The scratch area is created before extraction
// and destroyed afterwards unless cleanTemp is disabled, in which case
// it is preserved (and its location logged) for diagnosis.
func (p *Pipeline) Run(ctx context.Context, job types.ConversionJob) (err error) {
	scratch, scratchErr := utils.NewScratchArea(p.logger)
	if scratchErr != nil {
		return scratchErr
	}
	defer func() {
		if p.config.CleanTemp {
			scratch.Cleanup()
		} else if err != nil {
			scratch.Preserve("job failed")
		} else {
			scratch.Preserve("clean-temp disabled")
		}
	}()

	meta := p.resolveMetadata(job)

	if job.Format == types.FormatEPUB && p.config.EPUBStrategy == types.EPUBStrategyDirect {
		if err = p.ebook.ConvertDirect(ctx, job.Input, job.OutputPath, scratch); err != nil {
			return err
		}
		return p.metadata.Apply(ctx, job.OutputPath, meta)
	}

	source, sourceErr := p.sourceFor(job.Format)
	if sourceErr != nil {
		return sourceErr
	}

	pages, err := source.ExtractPages(ctx, job.Input, scratch)
	if err != nil {
		return err
	}

	chunks, err := p.processor.ProcessPages(ctx, pages, scratch)
	if err != nil {
		return err
	}

	if err = p.assembler.Assemble(chunks, job.OutputPath); err != nil {
		return err
	}

	return p.metadata.Apply(ctx, job.OutputPath, meta)
}

// sourceFor picks the page source that handles the job's format
func (p *Pipeline) sourceFor(format types.Format) (interfaces.PageSource, error) {
	for _, source := range p.sources {
		if source.SupportsFormat(format) {
			p.logger.Debug("Selected page source %q for format %s", source.Name(), format)
			return source, nil
		}
	}
	return nil, utils.NewExtractionError("", fmt.Sprintf("no page source for format %s", format), nil)
}

// resolveMetadata combines explicit metadata with the optional derived
// title.
func (p *Pipeline) resolveMetadata(job types.ConversionJob) types.Metadata {
	meta := p.config.Metadata
	if p.config.EditMetadata && meta.Title == "" {
		meta.Title = metadata.DeriveTitle(job.Input)
	}
	return meta
}
