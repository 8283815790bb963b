package derive

import (
	"fmt"
	"sort"
	"strings"

	"variantcore/pkg/domain"
)

// EnrichedLocusListItem is a locus list item with its display label resolved
// and, when the item references a known gene, the resolved gene attached.
type EnrichedLocusListItem struct {
	domain.LocusListItem
	Gene *domain.Gene `json:"gene,omitempty"`
}

// EnrichedLocusList is a locus list whose items carry display labels and
// gene back-references, sorted by display label, with RawItems set to the
// ", "-joined labels.
type EnrichedLocusList struct {
	domain.LocusList
	Items []EnrichedLocusListItem `json:"items"`
}

// EnrichLocusList resolves display text for every item of the list: the gene
// symbol when the referenced gene is known, the raw gene id when it is not,
// or a chr{chrom}:{start}-{end} label for interval items. The input list is
// left untouched; the enriched result is a copy.
func EnrichLocusList(list domain.LocusList, genes map[string]domain.Gene) EnrichedLocusList {
	enriched := EnrichedLocusList{LocusList: list}
	enriched.LocusList.Items = nil

	if list.Description != nil {
		description := *list.Description
		enriched.LocusList.Description = &description
	}

	enriched.Items = make([]EnrichedLocusListItem, 0, len(list.Items))
	for _, item := range list.Items {
		out := EnrichedLocusListItem{LocusListItem: item}
		if item.GeneID != "" {
			out.Display = item.GeneID
			if gene, ok := genes[item.GeneID]; ok {
				resolved := gene
				out.Gene = &resolved
				if gene.Symbol != "" {
					out.Display = gene.Symbol
				}
			}
		} else {
			out.Display = fmt.Sprintf("chr%s:%d-%d", item.Chrom, item.Start, item.End)
		}
		enriched.Items = append(enriched.Items, out)
	}

	sort.Slice(enriched.Items, func(i, j int) bool {
		return enriched.Items[i].Display < enriched.Items[j].Display
	})

	labels := make([]string, len(enriched.Items))
	for i, item := range enriched.Items {
		labels[i] = item.Display
	}
	enriched.RawItems = strings.Join(labels, ", ")
	return enriched
}
