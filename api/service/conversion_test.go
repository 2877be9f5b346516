package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"geometryConverter/api/models"
	"geometryConverter/api/staging"
	"geometryConverter/api/validation"
	"geometryConverter/worker/converter"
	"geometryConverter/worker/pool"
)

type mockConverter struct {
	convertFunc func(ctx context.Context, req converter.Request) (string, error)
}

func (m *mockConverter) Convert(ctx context.Context, req converter.Request) (string, error) {
	return m.convertFunc(ctx, req)
}

func newTestService(t *testing.T, conv Converter, workers int) (*ConversionService, *staging.Area) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	area, err := staging.New(filepath.Join(t.TempDir(), "uploads"), logger)
	if err != nil {
		t.Fatalf("Failed to create staging area: %v", err)
	}

	return NewConversionService(area, conv, pool.NewWorkerPool(workers), 45*time.Second, logger), area
}

func TestConversionService_StageWritesPayload(t *testing.T) {
	svc, _ := newTestService(t, &mockConverter{}, 1)

	files, err := svc.Stage(&models.ConversionRequest{
		TargetFormat:  "GEOJSON",
		PreferredName: "roads.shp",
		Payload:       []byte("POINT (1 2)"),
	})
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	defer files.Release()

	data, err := os.ReadFile(files.InputPath)
	if err != nil {
		t.Fatalf("Failed to read staged input: %v", err)
	}
	if string(data) != "POINT (1 2)" {
		t.Errorf("Unexpected staged content %q", string(data))
	}
	if files.OutputName != "converted-roads.geojson" {
		t.Errorf("Expected converted-roads.geojson, got %s", files.OutputName)
	}
}

func TestConversionService_ConvertPassesRequest(t *testing.T) {
	var got converter.Request
	conv := &mockConverter{
		convertFunc: func(ctx context.Context, req converter.Request) (string, error) {
			got = req
			return req.OutputPath, nil
		},
	}
	svc, _ := newTestService(t, conv, 1)

	req := &models.ConversionRequest{
		TargetFormat: "DXF",
		SourceSRS:    "EPSG:3857",
		TargetSRS:    "EPSG:4326",
		Payload:      []byte("POINT (1 2)"),
	}

	files, err := svc.Stage(req)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	defer files.Release()

	out, err := svc.Convert(context.Background(), files, req)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if out != files.OutputPath {
		t.Errorf("Expected %s, got %s", files.OutputPath, out)
	}
	if got.InputPath != files.InputPath || got.OutputPath != files.OutputPath {
		t.Errorf("Unexpected paths %s -> %s", got.InputPath, got.OutputPath)
	}
	if got.TargetFormat != "DXF" || got.SourceSRS != "EPSG:3857" || got.TargetSRS != "EPSG:4326" {
		t.Errorf("Unexpected request %+v", got)
	}
	if got.Timeout != 45*time.Second {
		t.Errorf("Expected 45s timeout, got %s", got.Timeout)
	}
}

func TestConversionService_ConvertPropagatesErrors(t *testing.T) {
	conv := &mockConverter{
		convertFunc: func(ctx context.Context, req converter.Request) (string, error) {
			return "", converter.ErrNoOutput
		},
	}
	svc, _ := newTestService(t, conv, 1)

	req := &models.ConversionRequest{TargetFormat: "DXF", Payload: []byte("x")}
	files, err := svc.Stage(req)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	defer files.Release()

	if _, err := svc.Convert(context.Background(), files, req); !errors.Is(err, converter.ErrNoOutput) {
		t.Errorf("Expected ErrNoOutput, got %v", err)
	}
}

func TestConversionService_StageFailsWhenRootMissing(t *testing.T) {
	svc, area := newTestService(t, &mockConverter{}, 1)

	if err := area.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := svc.Stage(&models.ConversionRequest{TargetFormat: "DXF", Payload: []byte("x")})
	if err == nil {
		t.Fatal("Expected error when staging root is gone")
	}
	if code := validation.StatusCode(err); code != 500 {
		t.Errorf("Expected internal error status, got %d", code)
	}
}
