package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opentelekomcloud-infra/giji/internal/config"
	"github.com/opentelekomcloud-infra/giji/internal/github"
	"github.com/opentelekomcloud-infra/giji/internal/model"
	repomocks "github.com/opentelekomcloud-infra/giji/internal/repository/mocks"
	svcmocks "github.com/opentelekomcloud-infra/giji/internal/service/mocks"
)

func newLabelsFixture() (*svcmocks.MockGitHub, *repomocks.MockCategoryRepository, *Labels) {
	gh := new(svcmocks.MockGitHub)
	cats := new(repomocks.MockCategoryRepository)
	svc := NewLabels(gh, cats, nil, []string{"opentelekomcloud-docs"},
		config.ImporterConfig{TargetSquads: []string{"Database Squad"}})
	return gh, cats, svc
}

func TestStandardLabels(t *testing.T) {
	labels := StandardLabels()
	require.Len(t, labels, 5)

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
		assert.NotEmpty(t, l.Color, "label %s has no color", l.Name)
		assert.NotEmpty(t, l.Description, "label %s has no description", l.Name)
	}
	assert.ElementsMatch(t, []string{"bulk", "bug", "demand", "documentation_bug", "imported-to-jira"}, names)
}

func TestLabelsEnsureAllCountsOutcomes(t *testing.T) {
	gh, _, svc := newLabelsFixture()
	ctx := context.Background()

	gh.On("HasPushPermission", ctx, "opentelekomcloud-docs", "r1").Return(true, nil)
	// r1: everything lands; "bug" pre-exists.
	for _, l := range StandardLabels() {
		status := github.LabelCreated
		if l.Name == "bug" {
			status = github.LabelExists
		}
		gh.On("CreateLabel", ctx, "opentelekomcloud-docs", "r1", l).Return(status, nil)
		gh.On("CreateLabel", ctx, "opentelekomcloud-docs", "r2", l).
			Return(github.LabelStatus(""), errors.New("403 forbidden"))
	}

	report, err := svc.EnsureAll(ctx, LabelOptions{Repos: []string{"r1", "r2"}})
	require.NoError(t, err)

	require.Len(t, report.Repos, 2)
	assert.Equal(t, 4, report.Repos[0].Created)
	assert.Equal(t, 1, report.Repos[0].Exists)
	assert.True(t, report.Repos[0].OK())
	assert.Equal(t, 5, report.Repos[1].Failed)
	assert.False(t, report.Repos[1].OK())
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 1, report.Exists)
	assert.Equal(t, 5, report.Failed)
}

func TestLabelsEnsureAllPermissionWarningDoesNotStop(t *testing.T) {
	gh, _, svc := newLabelsFixture()
	ctx := context.Background()

	gh.On("HasPushPermission", ctx, "opentelekomcloud-docs", "r").Return(false, nil)
	for _, l := range StandardLabels() {
		gh.On("CreateLabel", ctx, "opentelekomcloud-docs", "r", l).Return(github.LabelCreated, nil)
	}

	report, err := svc.EnsureAll(ctx, LabelOptions{Repos: []string{"r"}})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Created)
}

func TestLabelsEnsureAllUsesSquadQuery(t *testing.T) {
	gh, cats, svc := newLabelsFixture()
	ctx := context.Background()

	cats.On("ListBySquads", ctx, []string{"Database Squad"}).Return([]model.RepoCategory{
		{Repository: "geminidb", Squad: "Database Squad"},
	}, nil)
	gh.On("HasPushPermission", ctx, "opentelekomcloud-docs", "geminidb").Return(true, nil)
	gh.On("CreateLabel", ctx, "opentelekomcloud-docs", "geminidb", mock.Anything).
		Return(github.LabelCreated, nil)

	report, err := svc.EnsureAll(ctx, LabelOptions{})
	require.NoError(t, err)
	require.Len(t, report.Repos, 1)
	assert.Equal(t, "geminidb", report.Repos[0].Repo)
	cats.AssertExpectations(t)
}

func TestLabelsEnsureAllSquadQueryFailure(t *testing.T) {
	_, cats, svc := newLabelsFixture()
	ctx := context.Background()

	cats.On("ListBySquads", ctx, []string{"Database Squad"}).Return(nil, errors.New("db down"))

	_, err := svc.EnsureAll(ctx, LabelOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
