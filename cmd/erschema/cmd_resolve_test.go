package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/erschema/internal/converter"
	"github.com/ajitpratap0/erschema/internal/models"
	"github.com/ajitpratap0/erschema/internal/resolver"
)

func TestPromptAdvisor_ChooseKey(t *testing.T) {
	var out bytes.Buffer
	p := &promptAdvisor{in: bufio.NewReader(strings.NewReader("7\nx\n1\n")), out: &out}

	dec, err := p.Decide(context.Background(), nil, models.NewChooseKey("Student", []string{"(sid)", "(email)"}))
	require.NoError(t, err)
	assert.Equal(t, models.KeySelected("Student", 1), dec)
	assert.Contains(t, out.String(), "[1] (email)")
	assert.Equal(t, 2, strings.Count(out.String(), "Please enter a number between 0 and 1."))
}

func TestPromptAdvisor_ChooseMerge(t *testing.T) {
	p := &promptAdvisor{in: bufio.NewReader(strings.NewReader("Y\n")), out: &bytes.Buffer{}}
	dec, err := p.Decide(context.Background(), nil, models.NewChooseMerge("Holds", "Person"))
	require.NoError(t, err)
	assert.Equal(t, models.MergeChosen("Holds", "Person", true), dec)

	p = &promptAdvisor{in: bufio.NewReader(strings.NewReader("\n")), out: &bytes.Buffer{}}
	dec, err = p.Decide(context.Background(), nil, models.NewChooseMerge("Holds", "Person"))
	require.NoError(t, err)
	assert.False(t, dec.MergeIntoTarget)
}

func TestPromptAdvisor_EOF(t *testing.T) {
	p := &promptAdvisor{in: bufio.NewReader(strings.NewReader("")), out: &bytes.Buffer{}}
	_, err := p.Decide(context.Background(), nil, models.NewChooseKey("T", []string{"(a)"}))
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	res := &converter.Result{
		Status:   resolver.StatusPaused,
		Request:  &models.DecisionRequest{Kind: models.RequestChooseKey, TableName: "T", Options: []string{"(a)", "(b)"}},
		Document: "<er/>",
	}
	schemaPath := filepath.Join(dir, "out.json")
	docPath := filepath.Join(dir, "doc.xml")
	require.NoError(t, writeResult(res, schemaPath, docPath))

	doc, err := os.ReadFile(docPath)
	require.NoError(t, err)
	assert.Equal(t, "<er/>", string(doc))

	body, err := os.ReadFile(schemaPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status": "paused"`)
	assert.Contains(t, string(body), `"table_name": "T"`)
}
