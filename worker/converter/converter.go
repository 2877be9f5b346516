package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultTimeout = 60 * time.Second

// waitDelay bounds how long Wait keeps draining pipes after the child is killed.
const waitDelay = 5 * time.Second

var (
	ErrTimeout          = errors.New("conversion timed out")
	ErrConversionFailed = errors.New("conversion failed")
	ErrNoOutput         = errors.New("conversion produced no output")
)

type Request struct {
	InputPath    string
	OutputPath   string
	TargetFormat string
	SourceSRS    string
	TargetSRS    string
	Timeout      time.Duration
}

// Ogr2Ogr runs the GDAL ogr2ogr tool as a child process.
type Ogr2Ogr struct {
	BinaryPath string
	Timeout    time.Duration
	logger     *zap.Logger
}

func NewOgr2Ogr(binaryPath string, timeout time.Duration, logger *zap.Logger) *Ogr2Ogr {
	if binaryPath == "" {
		binaryPath = "ogr2ogr"
	}
	return &Ogr2Ogr{
		BinaryPath: binaryPath,
		Timeout:    timeout,
		logger:     logger,
	}
}

// BuildArgs returns the ogr2ogr argument vector for req. Spatial reference
// flags are appended only when set.
func BuildArgs(req Request) []string {
	args := []string{"-f", req.TargetFormat, req.OutputPath, req.InputPath}

	if req.SourceSRS != "" {
		args = append(args, "-s_srs", req.SourceSRS)
	}
	if req.TargetSRS != "" {
		args = append(args, "-t_srs", req.TargetSRS)
	}

	return args
}

// Convert runs the tool and returns req.OutputPath once the output exists.
// An exit status of zero alone is not treated as success.
func (c *Ogr2Ogr) Convert(ctx context.Context, req Request) (string, error) {
	timeout := c.timeout(req)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := BuildArgs(req)

	c.logger.Info("Starting conversion",
		zap.String("input", req.InputPath),
		zap.String("output", req.OutputPath),
		zap.String("format", req.TargetFormat),
		zap.Duration("timeout", timeout),
	)

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.BinaryPath, args...)
	cmd.WaitDelay = waitDelay

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Error("Conversion timed out",
				zap.String("input", req.InputPath),
				zap.Duration("timeout", timeout),
			)
			return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}

		c.logger.Error("Conversion failed",
			zap.String("input", req.InputPath),
			zap.String("output", strings.TrimSpace(output.String())),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %s %s: %w%s", ErrConversionFailed, c.BinaryPath, strings.Join(args, " "), err, toolOutput(&output))
	}

	if _, err := os.Stat(req.OutputPath); err != nil {
		c.logger.Error("Conversion produced no output",
			zap.String("output", req.OutputPath),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %s%s", ErrNoOutput, req.OutputPath, toolOutput(&output))
	}

	c.logger.Info("Conversion completed",
		zap.String("output", req.OutputPath),
		zap.Duration("duration", time.Since(start)),
	)

	return req.OutputPath, nil
}

func (c *Ogr2Ogr) timeout(req Request) time.Duration {
	switch {
	case req.Timeout > 0:
		return req.Timeout
	case c.Timeout > 0:
		return c.Timeout
	default:
		return DefaultTimeout
	}
}

func toolOutput(buf *bytes.Buffer) string {
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return ""
	}
	return ", output: " + out
}
