package derive

import (
	"sort"

	"variantcore/pkg/domain"
)

// FamilySizeBucket labels one bar of the family-size histogram.
type FamilySizeBucket string

const (
	FamilySizeEmpty  FamilySizeBucket = "0"
	FamilySizeOne    FamilySizeBucket = "1"
	FamilySizeTwo    FamilySizeBucket = "2"
	FamilySizeTrio   FamilySizeBucket = "trio"
	FamilySizeQuad   FamilySizeBucket = "quad"
	FamilySizeLarger FamilySizeBucket = "5+"
)

func familySizeBucket(size int) FamilySizeBucket {
	switch size {
	case 0:
		return FamilySizeEmpty
	case 1:
		return FamilySizeOne
	case 2:
		return FamilySizeTwo
	case 3:
		return FamilySizeTrio
	case 4:
		return FamilySizeQuad
	default:
		return FamilySizeLarger
	}
}

// FamilySizeHistogram buckets the families by individual count. Families
// with five or more members share the "5+" bucket.
func FamilySizeHistogram(families map[string]domain.Family, individuals map[string]domain.Individual) map[FamilySizeBucket]int {
	sizes := make(map[string]int, len(families))
	for guid := range families {
		sizes[guid] = 0
	}
	for _, individual := range individuals {
		if _, ok := sizes[individual.FamilyGUID]; ok {
			sizes[individual.FamilyGUID]++
		}
	}

	histogram := make(map[FamilySizeBucket]int)
	for _, size := range sizes {
		histogram[familySizeBucket(size)]++
	}
	return histogram
}

// loadedDateLayout formats loaded dates for per-day count keys.
const loadedDateLayout = "2006-01-02"

// LoadedSampleCounts counts loaded samples per sample type and load date.
// Samples that are not loaded, or loaded without a date, are skipped.
func LoadedSampleCounts(samples map[string]domain.Sample) map[domain.SampleType]map[string]int {
	counts := make(map[domain.SampleType]map[string]int)
	for _, sample := range samples {
		if sample.Status != domain.SampleStatusLoaded || sample.LoadedDate == nil {
			continue
		}
		byDate, ok := counts[sample.SampleType]
		if !ok {
			byDate = make(map[string]int)
			counts[sample.SampleType] = byDate
		}
		byDate[sample.LoadedDate.Format(loadedDateLayout)]++
	}
	return counts
}

// AnalysisStatusCounts tallies families per analysis status for the stacked
// overview bar.
func AnalysisStatusCounts(families map[string]domain.Family) map[domain.AnalysisStatus]int {
	counts := make(map[domain.AnalysisStatus]int)
	for _, family := range families {
		counts[family.AnalysisStatus]++
	}
	return counts
}

// VariantCounts summarizes the saved variants linked to one family.
type VariantCounts struct {
	Total int            `json:"total"`
	ByTag map[string]int `json:"by_tag,omitempty"`
}

// VariantCountsByFamily counts saved variants and their tags per family.
func VariantCountsByFamily(variants map[string]domain.SavedVariant) map[string]VariantCounts {
	counts := make(map[string]VariantCounts)
	for familyGUID, group := range VariantsByFamily(variants) {
		summary := VariantCounts{Total: len(group)}
		for _, variant := range group {
			for _, tag := range variant.Tags {
				if summary.ByTag == nil {
					summary.ByTag = make(map[string]int)
				}
				summary.ByTag[tag.Name]++
			}
		}
		counts[familyGUID] = summary
	}
	return counts
}

// SortSamplesByLoadedDate orders samples by loaded date ascending; samples
// without a loaded date sort last, with GUID as a tiebreaker.
func SortSamplesByLoadedDate(samples []domain.Sample) []domain.Sample {
	out := make([]domain.Sample, len(samples))
	copy(out, samples)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LoadedDate, out[j].LoadedDate
		switch {
		case a == nil && b == nil:
			return out[i].GUID < out[j].GUID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return out[i].GUID < out[j].GUID
		}
	})
	return out
}

// FirstLoadedSample returns the earliest loaded sample, when one exists.
func FirstLoadedSample(samples []domain.Sample) (domain.Sample, bool) {
	var first domain.Sample
	found := false
	for _, sample := range samples {
		if sample.Status != domain.SampleStatusLoaded || sample.LoadedDate == nil {
			continue
		}
		if !found || sample.LoadedDate.Before(*first.LoadedDate) {
			first = sample
			found = true
		}
	}
	return first, found
}

// MostRecentLoadedSample returns the latest loaded sample, when one exists.
func MostRecentLoadedSample(samples []domain.Sample) (domain.Sample, bool) {
	var latest domain.Sample
	found := false
	for _, sample := range samples {
		if sample.Status != domain.SampleStatusLoaded || sample.LoadedDate == nil {
			continue
		}
		if !found || sample.LoadedDate.After(*latest.LoadedDate) {
			latest = sample
			found = true
		}
	}
	return latest, found
}
