package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geometryConverter/api/models"
	"geometryConverter/api/staging"
	"geometryConverter/worker/converter"
	"geometryConverter/worker/pool"
)

type Converter interface {
	Convert(ctx context.Context, req converter.Request) (string, error)
}

// ConversionService runs the stage and convert steps of a request. The
// caller owns the returned staging.Files and must release them.
type ConversionService struct {
	area      *staging.Area
	converter Converter
	pool      *pool.WorkerPool
	timeout   time.Duration
	logger    *zap.Logger
}

func NewConversionService(area *staging.Area, conv Converter, workers *pool.WorkerPool, timeout time.Duration, logger *zap.Logger) *ConversionService {
	return &ConversionService{
		area:      area,
		converter: conv,
		pool:      workers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Stage allocates the request's paths and writes the payload to the input
// path. On failure nothing is left behind.
func (s *ConversionService) Stage(req *models.ConversionRequest) (*staging.Files, error) {
	files, err := s.area.Allocate(req.PreferredName, req.Extension())
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	if err := files.WriteInput(req.Payload); err != nil {
		files.Release()
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	s.logger.Debug("Upload staged",
		zap.String("input", files.InputPath),
		zap.Int("bytes", len(req.Payload)),
	)

	return files, nil
}

// Convert runs the converter on staged files once a worker slot is free.
func (s *ConversionService) Convert(ctx context.Context, files *staging.Files, req *models.ConversionRequest) (string, error) {
	var outputPath string

	err := s.pool.Run(ctx, func(ctx context.Context) error {
		path, err := s.converter.Convert(ctx, converter.Request{
			InputPath:    files.InputPath,
			OutputPath:   files.OutputPath,
			TargetFormat: req.TargetFormat,
			SourceSRS:    req.SourceSRS,
			TargetSRS:    req.TargetSRS,
			Timeout:      s.timeout,
		})
		outputPath = path
		return err
	})
	if err != nil {
		return "", err
	}

	return outputPath, nil
}
