package hdx

import (
	"cmp"
	"macroscrape/internal/extract"
	"macroscrape/pkg/textutil"
	"slices"
	"strings"
)

// Keyword is one package_search query. Datasets whose title contains one of
// the Priority words are preferred over the rest.
type Keyword struct {
	Query    string
	Priority []string
}

var Keywords = []Keyword{
	{Query: "market monitor", Priority: []string{"Global", "WFP Global"}},
	{Query: "food price", Priority: []string{"Global"}},
	{Query: "economic explorer"},
	{Query: "inflation"},
	{Query: "exchange rate"},
}

type Resource struct {
	URL         string `json:"url"`
	Format      string `json:"format"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Size is a number, a numeric string or null depending on who uploaded it.
	Size any `json:"size"`
}

func (r Resource) size() float64 {
	size, _ := extract.Float(r.Size)
	return size
}

type Dataset struct {
	Name             string     `json:"name"`
	Title            string     `json:"title"`
	MetadataModified string     `json:"metadata_modified"`
	Resources        []Resource `json:"resources"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
	Result struct {
		Count   int       `json:"count"`
		Results []Dataset `json:"results"`
	} `json:"result"`
}

// RankDatasets orders search results best first: datasets matching a priority
// word come first, then titles closer to the query. Ties keep the search order,
// which is most recently modified first.
func RankDatasets(kw Keyword, datasets []Dataset) []Dataset {
	type scored struct {
		ds       Dataset
		priority int
		sim      float64
	}
	scores := make([]scored, len(datasets))
	for i, ds := range datasets {
		s := scored{ds: ds, sim: textutil.Similarity(ds.Title, kw.Query)}
		if len(kw.Priority) > 0 && textutil.ContainsAny(ds.Title, kw.Priority...) {
			s.priority = 1
		}
		scores[i] = s
	}
	slices.SortStableFunc(scores, func(a, b scored) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(b.sim, a.sim)
	})

	out := make([]Dataset, len(scores))
	for i, s := range scores {
		out[i] = s.ds
	}
	return out
}

// preferredFormats are the formats readResource can decode, best first.
var preferredFormats = []string{"CSV", "XLSX"}

var skippedResources = []string{"metadata", "readme", "guide"}

// PickResource chooses the data file of a dataset: documentation resources are
// skipped along with formats that cannot be read, then CSV is preferred over XLSX,
// then the largest file.
func PickResource(ds Dataset) (Resource, bool) {
	var candidates []Resource
	for _, r := range ds.Resources {
		if strings.TrimSpace(r.URL) == "" || textutil.ContainsAny(r.Name, skippedResources...) {
			continue
		}
		if !slices.Contains(preferredFormats, strings.ToUpper(r.Format)) {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return Resource{}, false
	}
	slices.SortStableFunc(candidates, func(a, b Resource) int {
		pa := slices.Index(preferredFormats, strings.ToUpper(a.Format))
		pb := slices.Index(preferredFormats, strings.ToUpper(b.Format))
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		return cmp.Compare(b.size(), a.size())
	})
	return candidates[0], true
}
