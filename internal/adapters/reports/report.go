package reports

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"variantcore/internal/derive"
	"variantcore/pkg/domain"
)

// OverviewReport aggregates one project's derived views for export.
type OverviewReport struct {
	Project          domain.Project                        `json:"project"`
	GeneratedAt      time.Time                             `json:"generated_at"`
	FamilySizes      map[derive.FamilySizeBucket]int       `json:"family_sizes"`
	AnalysisStatuses map[domain.AnalysisStatus]int         `json:"analysis_statuses"`
	LoadedSamples    map[domain.SampleType]map[string]int  `json:"loaded_samples"`
	VariantCounts    map[string]derive.VariantCounts       `json:"variant_counts_by_family"`
	LocusLists       []derive.EnrichedLocusList            `json:"locus_lists"`
	Submissions      map[string][]domain.MatchmakerSubmission `json:"submissions_by_family,omitempty"`
}

// IndividualRow is one line of the individuals table export.
type IndividualRow struct {
	FamilyID     string `json:"family_id"`
	IndividualID string `json:"individual_id"`
	PaternalID   string `json:"paternal_id"`
	MaternalID   string `json:"maternal_id"`
	Sex          string `json:"sex"`
	Affected     string `json:"affected"`
	Notes        string `json:"notes"`
}

func mapByGUID[T interface{ ProjectRef() string }](items []T, guid func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, item := range items {
		out[guid(item)] = item
	}
	return out
}

// BuildOverviewReport derives a project's overview aggregates from a
// read-only view of committed state.
func BuildOverviewReport(view domain.TransactionView, projectGUID string) (OverviewReport, error) {
	project, ok := view.FindProject(projectGUID)
	if !ok {
		return OverviewReport{}, fmt.Errorf("project %s not found", projectGUID)
	}

	families := mapByGUID(view.ListFamilies(), func(f domain.Family) string { return f.GUID })
	individuals := mapByGUID(view.ListIndividuals(), func(i domain.Individual) string { return i.GUID })
	samples := mapByGUID(view.ListSamples(), func(s domain.Sample) string { return s.GUID })
	variants := mapByGUID(view.ListSavedVariants(), func(v domain.SavedVariant) string { return v.GUID })
	submissions := mapByGUID(view.ListSubmissions(), func(m domain.MatchmakerSubmission) string { return m.GUID })

	projectFamilies := derive.GroupByProject(families)[projectGUID]
	projectIndividuals := derive.GroupByProject(individuals)[projectGUID]
	projectSamples := derive.GroupByProject(samples)[projectGUID]
	projectVariants := derive.GroupByProject(variants)[projectGUID]
	submissionsByProject := derive.GroupByProject(submissions)

	genes := make(map[string]domain.Gene)
	for _, gene := range view.ListGenes() {
		genes[gene.GeneID] = gene
	}

	report := OverviewReport{
		Project:          project,
		GeneratedAt:      time.Now().UTC(),
		FamilySizes:      derive.FamilySizeHistogram(projectFamilies, projectIndividuals),
		AnalysisStatuses: derive.AnalysisStatusCounts(projectFamilies),
		LoadedSamples:    derive.LoadedSampleCounts(projectSamples),
		VariantCounts:    derive.VariantCountsByFamily(projectVariants),
	}

	for _, list := range view.ListLocusLists() {
		if list.ProjectGUID != projectGUID {
			continue
		}
		report.LocusLists = append(report.LocusLists, derive.EnrichLocusList(list, genes))
	}
	sort.Slice(report.LocusLists, func(i, j int) bool {
		return report.LocusLists[i].Name < report.LocusLists[j].Name
	})

	for _, family := range projectFamilies {
		matched := derive.SubmissionsForFamily(submissionsByProject, family)
		if len(matched) == 0 {
			continue
		}
		if report.Submissions == nil {
			report.Submissions = make(map[string][]domain.MatchmakerSubmission)
		}
		report.Submissions[family.GUID] = matched
	}

	return report, nil
}

// BuildIndividualRows flattens a project's individuals into export rows,
// ordered by family then individual identifier.
func BuildIndividualRows(view domain.TransactionView, projectGUID string) ([]IndividualRow, error) {
	if _, ok := view.FindProject(projectGUID); !ok {
		return nil, fmt.Errorf("project %s not found", projectGUID)
	}

	familyIDs := make(map[string]string)
	for _, family := range view.ListFamilies() {
		familyIDs[family.GUID] = family.FamilyID
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	rows := make([]IndividualRow, 0)
	for _, individual := range view.ListIndividuals() {
		if individual.ProjectGUID != projectGUID {
			continue
		}
		rows = append(rows, IndividualRow{
			FamilyID:     familyIDs[individual.FamilyGUID],
			IndividualID: individual.IndividualID,
			PaternalID:   deref(individual.PaternalID),
			MaternalID:   deref(individual.MaternalID),
			Sex:          string(individual.Sex),
			Affected:     string(individual.Affected),
			Notes:        deref(individual.Notes),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FamilyID != rows[j].FamilyID {
			return rows[i].FamilyID < rows[j].FamilyID
		}
		return rows[i].IndividualID < rows[j].IndividualID
	})
	return rows, nil
}

// individualColumns is the header row of the individuals table export.
var individualColumns = []string{"family_id", "individual_id", "paternal_id", "maternal_id", "sex", "affected", "notes"}

func (r IndividualRow) record() []string {
	return []string{r.FamilyID, r.IndividualID, r.PaternalID, r.MaternalID, r.Sex, r.Affected, r.Notes}
}

// overviewRows flattens the report into (section, key, value) rows for
// tabular formats.
func overviewRows(report OverviewReport) [][]string {
	rows := [][]string{}

	sizeRows := [][]string{}
	for bucket, count := range report.FamilySizes {
		sizeRows = append(sizeRows, []string{"family_sizes", string(bucket), strconv.Itoa(count)})
	}
	rows = append(rows, sortedRows(sizeRows)...)

	statusRows := [][]string{}
	for status, count := range report.AnalysisStatuses {
		statusRows = append(statusRows, []string{"analysis_statuses", string(status), strconv.Itoa(count)})
	}
	rows = append(rows, sortedRows(statusRows)...)

	sampleRows := [][]string{}
	for sampleType, byDate := range report.LoadedSamples {
		for date, count := range byDate {
			sampleRows = append(sampleRows, []string{"loaded_samples", string(sampleType) + " " + date, strconv.Itoa(count)})
		}
	}
	rows = append(rows, sortedRows(sampleRows)...)

	variantRows := [][]string{}
	for familyGUID, counts := range report.VariantCounts {
		variantRows = append(variantRows, []string{"variant_counts", familyGUID, strconv.Itoa(counts.Total)})
	}
	rows = append(rows, sortedRows(variantRows)...)

	for _, list := range report.LocusLists {
		rows = append(rows, []string{"locus_lists", list.Name, list.RawItems})
	}
	return rows
}

func sortedRows(rows [][]string) [][]string {
	sort.Slice(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })
	return rows
}
