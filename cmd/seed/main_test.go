package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-admin/config"
	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/seed"
	"github.com/jwalitptl/dental-admin/pkg/logger"
)

func fsConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Driver = "fs"
	cfg.Storage.Path = t.TempDir()
	return cfg
}

func dump(t *testing.T, cfg *config.Config) map[string]json.RawMessage {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, cmdDump, &out, logger.Nop()))
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	return doc
}

func TestRun_SeedThenDump(t *testing.T) {
	cfg := fsConfig(t)

	assert.Empty(t, dump(t, cfg))

	require.NoError(t, run(context.Background(), cfg, cmdSeed, &bytes.Buffer{}, logger.Nop()))

	doc := dump(t, cfg)
	assert.Contains(t, doc, model.KeyAccounts)
	assert.Contains(t, doc, model.KeyPatients)
	assert.Contains(t, doc, model.KeyIncidents)
	assert.NotContains(t, doc, model.KeyCurrentSession)

	var patients []model.Patient
	require.NoError(t, json.Unmarshal(doc[model.KeyPatients], &patients))
	assert.Len(t, patients, len(seed.Patients()))
}

func TestRun_ResetRestoresFixtures(t *testing.T) {
	cfg := fsConfig(t)
	require.NoError(t, run(context.Background(), cfg, cmdSeed, &bytes.Buffer{}, logger.Nop()))

	require.NoError(t, run(context.Background(), cfg, cmdReset, &bytes.Buffer{}, logger.Nop()))

	var incidents []model.Incident
	require.NoError(t, json.Unmarshal(dump(t, cfg)[model.KeyIncidents], &incidents))
	assert.Len(t, incidents, len(seed.Incidents()))
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), config.Default(), "drop", &bytes.Buffer{}, logger.Nop())
	assert.ErrorContains(t, err, `unknown command "drop"`)
}

func TestWriteDump_NonJSONValue(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeDump(&out, map[string]string{"k": "not json"}))
	assert.JSONEq(t, `{"k":"not json"}`, out.String())
}
