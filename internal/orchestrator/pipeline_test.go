package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_HappyPath(t *testing.T) {
	gen := newScripted()
	res, rec, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Empty(t, res.Warnings)

	// Corrected text supersedes raw; unreviewed sections stay raw.
	assert.Equal(t, "corrected process-design", res.Sections[SectionProcessDesign])
	assert.Equal(t, "corrected solution-design", res.Sections[SectionSolutionDesign])
	assert.Equal(t, "raw configuration", res.Sections[SectionConfiguration])
	assert.Equal(t, "raw testing-strategy", res.Sections[SectionTestingStrategy])
	assert.Equal(t, "change plan", res.Sections[SectionChangeManagement])
	assert.Contains(t, res.Sections[SectionProcessAreas], "Procurement")
	assert.Contains(t, res.Sections[SectionReferenceObjects], "EKKO")
	assert.Len(t, res.Sections, 7)

	assert.Equal(t, "MM", res.Metadata.PrimaryModule)
	assert.Equal(t, "Materials Management", res.Metadata.ModuleName)
	assert.Equal(t, ModePipeline, res.Metadata.Mode)
	assert.Len(t, res.Metadata.ProcessSteps, 3)
	assert.NotEmpty(t, res.Metadata.CrossReferences)
	assert.Equal(t, "vendor", res.Metadata.Terminology["supplier"])

	for _, phase := range []Phase{PhaseSpecialists, PhaseFinalize} {
		events := rec.phaseEvents(phase)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, ProgressCompleted, last.Status)
		for _, d := range last.Tasks {
			assert.Equal(t, ProgressCompleted, d.Status, "%s/%s", phase, d.Name)
		}
	}

	complete := rec.phaseEvents(PhaseComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, ProgressCompleted, complete[0].Status)
}

func TestPipeline_DirectorFailureIsFatal(t *testing.T) {
	gen := newScripted().fail("director", "backend unavailable")
	res, rec, err := runPipeline(t, testConfig(), gen)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "Phase 1")
	assert.Contains(t, err.Error(), "backend unavailable")
	assert.Contains(t, err.Error(), "single-pass")
	assert.ErrorIs(t, err, ErrDirectorFailed)
	assert.True(t, IsFatal(err))

	for _, ev := range rec.all() {
		assert.Equal(t, PhaseDirector, ev.Phase, "no event may follow a director failure")
	}
	var failed int
	for _, ev := range rec.phaseEvents(PhaseDirector) {
		if ev.Status == ProgressFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	for _, r := range DefaultSpecialists {
		assert.Zero(t, gen.callCount(r.SectionID))
	}
	assert.Zero(t, gen.callCount("review"))
	assert.Zero(t, gen.callCount(SectionChangeManagement))
}

func TestPipeline_DirectorMalformedReplyIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"prose", "Here is my analysis of the process."},
		{"broken json", `{"processSteps": [`},
		{"no steps", `{"terminology": {}, "processSteps": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newScripted().reply("director", tt.reply)
			_, _, err := runPipeline(t, testConfig(), gen)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDirectorFailed)
			assert.Contains(t, err.Error(), "Phase 1")
		})
	}
}

func TestPipeline_OneSpecialistFails(t *testing.T) {
	gen := newScripted().fail(SectionSolutionDesign, "rate limited")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `"solution-design"`)
	assert.Contains(t, res.Warnings[0], "rate limited")

	// The reviewer returned a correction for solution-design, but a failed
	// specialist's section stays absent.
	_, present := res.Sections[SectionSolutionDesign]
	assert.False(t, present)
	assert.Equal(t, "corrected process-design", res.Sections[SectionProcessDesign])
	assert.Equal(t, "raw configuration", res.Sections[SectionConfiguration])
}

func TestPipeline_ThreeSpecialistsFail(t *testing.T) {
	gen := newScripted().
		fail(SectionProcessDesign, "boom 1").
		fail(SectionSolutionDesign, "boom 2").
		fail(SectionConfiguration, "boom 3")
	res, rec, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 4)
	for _, w := range res.Warnings[:3] {
		assert.True(t, strings.HasPrefix(w, "Specialist "), w)
	}
	assert.Contains(t, res.Warnings[3], "Degraded quality: 3 of 4 specialists failed for module MM")

	assert.Equal(t, "raw testing-strategy", res.Sections[SectionTestingStrategy])
	for _, id := range []string{SectionProcessDesign, SectionSolutionDesign, SectionConfiguration} {
		_, present := res.Sections[id]
		assert.False(t, present, id)
	}

	events := rec.phaseEvents(PhaseSpecialists)
	last := events[len(events)-1]
	assert.Equal(t, ProgressCompleted, last.Status)
	assert.Equal(t, "1 of 4 specialists completed", last.Message)
}

func TestPipeline_AllSpecialistsFail(t *testing.T) {
	gen := newScripted()
	for _, r := range DefaultSpecialists {
		gen.fail(r.SectionID, "unauthorized")
	}
	res, rec, err := runPipeline(t, testConfig(), gen)

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAllSpecialistsFailed)
	assert.Contains(t, err.Error(), "4 of 4")
	assert.Contains(t, err.Error(), "MM")
	assert.Contains(t, err.Error(), "verify")

	var pe *PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseSpecialists, pe.Phase)
	assert.Equal(t, 4, pe.Total)

	for _, ev := range rec.phaseEvents(PhaseSpecialists) {
		assert.NotEqual(t, ProgressCompleted, ev.Status, "no stage completion on total failure")
	}
	assert.Empty(t, rec.phaseEvents(PhaseFinalize))
	assert.Empty(t, rec.phaseEvents(PhaseComplete))
	assert.Zero(t, gen.callCount("review"))
	assert.Zero(t, gen.callCount(SectionChangeManagement))
}

func TestPipeline_ReviewFailsSupplementarySucceeds(t *testing.T) {
	gen := newScripted().fail("review", "malformed response")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Consistency review failed")
	assert.Contains(t, res.Warnings[0], "unreviewed")

	for _, r := range DefaultSpecialists {
		assert.Equal(t, "raw "+r.SectionID, res.Sections[r.SectionID])
	}
	assert.Equal(t, "change plan", res.Sections[SectionChangeManagement])
}

func TestPipeline_SupplementaryFails(t *testing.T) {
	gen := newScripted().fail(SectionChangeManagement, "overloaded")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `Supplementary section "change-management" failed`)
	_, present := res.Sections[SectionChangeManagement]
	assert.False(t, present)
	assert.Equal(t, "corrected process-design", res.Sections[SectionProcessDesign])
}

func TestPipeline_BothFinalizeTasksFail(t *testing.T) {
	gen := newScripted().fail("review", "x").fail(SectionChangeManagement, "y")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, "raw process-design", res.Sections[SectionProcessDesign])
	_, present := res.Sections[SectionChangeManagement]
	assert.False(t, present)
}

func TestPipeline_BlankOutputsNeverBecomeSections(t *testing.T) {
	gen := newScripted().
		reply(SectionTestingStrategy, "   ").
		reply("review", "## process-design\n\n## solution-design\nfixed\n")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	for id, text := range res.Sections {
		assert.NotEmpty(t, strings.TrimSpace(text), id)
	}
	_, present := res.Sections[SectionTestingStrategy]
	assert.False(t, present)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "empty response")
	// A blank correction does not erase the raw text.
	assert.Equal(t, "raw process-design", res.Sections[SectionProcessDesign])
	assert.Equal(t, "fixed", res.Sections[SectionSolutionDesign])
}

func TestPipeline_ConfigurableDegradedThreshold(t *testing.T) {
	twoFail := func() *scriptedGenerator {
		return newScripted().fail(SectionProcessDesign, "a").fail(SectionConfiguration, "b")
	}

	res, _, err := runPipeline(t, testConfig(), twoFail())
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2, "2 of 4 is below the default threshold")

	cfg := testConfig()
	cfg.DegradedThreshold = 0.5
	res, _, err = runPipeline(t, cfg, twoFail())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 3)
	assert.Contains(t, res.Warnings[2], "Degraded quality: 2 of 4")
}

func TestPipeline_UnknownModuleHasNoStaticSections(t *testing.T) {
	gen := newScripted()
	in := Input{Text: "Nothing about any SAP area at all."}
	res, err := newPipeline(t, testConfig(), gen).Run(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, "GENERAL", res.Metadata.PrimaryModule)
	_, present := res.Sections[SectionProcessAreas]
	assert.False(t, present)
	assert.Empty(t, res.Metadata.CrossReferences)
}

func TestNewPipeline_RequiresSpecialists(t *testing.T) {
	_, err := NewPipeline(testConfig(), newScripted(), WithSpecialists())
	assert.ErrorIs(t, err, ErrNoSpecialists)

	_, err = New(testConfig(), newScripted(), WithSpecialists())
	assert.ErrorIs(t, err, ErrNoSpecialists)
}

func TestPipeline_ReviewerSubheadingKeepsWholeCorrection(t *testing.T) {
	gen := newScripted().reply("review",
		"## process-design\nIntro paragraph.\n\n## Approval workflow\nThree-level release strategy details.\n")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	assert.Equal(t, "Intro paragraph.\n\n## Approval workflow\nThree-level release strategy details.",
		res.Sections[SectionProcessDesign])
	assert.Equal(t, "raw solution-design", res.Sections[SectionSolutionDesign])
	assert.Empty(t, res.Warnings)
}

func TestPipeline_DirectorReplyWithTrailingProse(t *testing.T) {
	gen := newScripted().reply("director",
		directorReply+"\nNote: placeholders such as {plant} are left for the specialists.")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	assert.Len(t, res.Metadata.ProcessSteps, 3)
	assert.Equal(t, 1, gen.callCount(SectionProcessDesign))
}

func TestPipeline_EmptyInput(t *testing.T) {
	_, err := newPipeline(t, testConfig(), newScripted()).Run(context.Background(), Input{Text: "  "}, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPipeline_CoherenceIssuesAreNotWarnings(t *testing.T) {
	gen := newScripted().reply(SectionConfiguration, "Maintain the supplier master before go-live.")
	res, _, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	assert.Empty(t, res.Warnings)
	require.NotEmpty(t, res.Metadata.CoherenceIssues)
	assert.Equal(t, SectionConfiguration, res.Metadata.CoherenceIssues[0].SectionA)
}

func TestPipeline_PhaseOrdering(t *testing.T) {
	gen := newScripted().fail(SectionTestingStrategy, "x")
	_, rec, err := runPipeline(t, testConfig(), gen)
	require.NoError(t, err)

	directorDone := rec.firstIndex(func(ev ProgressEvent) bool {
		return ev.Phase == PhaseDirector && ev.Status == ProgressCompleted
	})
	firstSpecialist := rec.firstIndex(func(ev ProgressEvent) bool { return ev.Phase == PhaseSpecialists })
	lastSpecialist := rec.lastIndex(func(ev ProgressEvent) bool { return ev.Phase == PhaseSpecialists })
	specialistsDone := rec.firstIndex(func(ev ProgressEvent) bool {
		return ev.Phase == PhaseSpecialists && ev.Task == "" && ev.Status == ProgressCompleted
	})
	firstFinalize := rec.firstIndex(func(ev ProgressEvent) bool { return ev.Phase == PhaseFinalize })

	require.NotEqual(t, -1, directorDone)
	assert.Less(t, directorDone, firstSpecialist)
	assert.Equal(t, lastSpecialist, specialistsDone, "stage completion follows every task transition")
	assert.Less(t, specialistsDone, firstFinalize)
}
