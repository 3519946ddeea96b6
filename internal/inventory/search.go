package inventory

import (
	"context"
	"strings"

	"github.com/kegdev/hearth/internal/logging"
	"github.com/kegdev/hearth/internal/model"
)

type ItemMatch struct {
	Item      model.Item                 `json:"item"`
	Container model.ContainerWithSharing `json:"container"`
}

type SearchResults struct {
	Containers []model.ContainerWithSharing `json:"containers"`
	Items      []ItemMatch                  `json:"items"`
}

// sourceRank orders sources from freshest to least fresh.
var sourceRank = map[Source]int{SourceRemote: 0, SourceFast: 1, SourceOffline: 2, SourceStale: 3}

func weaker(a, b Source) Source {
	if sourceRank[b] > sourceRank[a] {
		return b
	}
	return a
}

// Search matches term, ignoring case, against the user's containers and
// their items. It reads through the offline cache like Containers and Items,
// so it works offline over whatever is cached. Containers whose items cannot
// be read are skipped. The result's Source is the least fresh one used.
func (s *Service) Search(ctx context.Context, userID string, term string) (Result[SearchResults], error) {
	results := SearchResults{Containers: []model.ContainerWithSharing{}, Items: []ItemMatch{}}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Result[SearchResults]{Data: results, Source: SourceRemote}, nil
	}

	containers, err := s.Containers(ctx, userID)
	if err != nil {
		return Result[SearchResults]{}, err
	}
	source := containers.Source
	for _, container := range containers.Data {
		if containerMatches(container.Container, term) {
			results.Containers = append(results.Containers, container)
		}
		items, err := s.Items(ctx, container.ID)
		if err != nil {
			logging.Warn().Err(err).Str("container", container.ID).Msg("skipping container in search")
			continue
		}
		source = weaker(source, items.Source)
		for _, item := range items.Data {
			if itemMatches(item, term) {
				results.Items = append(results.Items, ItemMatch{Item: item, Container: container})
			}
		}
	}
	return Result[SearchResults]{Data: results, Source: source}, nil
}

// SearchInContainer matches term against one container's items.
func (s *Service) SearchInContainer(ctx context.Context, containerID string, term string) (Result[[]model.Item], error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Result[[]model.Item]{Data: []model.Item{}, Source: SourceRemote}, nil
	}
	items, err := s.Items(ctx, containerID)
	if err != nil {
		return Result[[]model.Item]{}, err
	}
	matches := []model.Item{}
	for _, item := range items.Data {
		if itemMatches(item, term) {
			matches = append(matches, item)
		}
	}
	return Result[[]model.Item]{Data: matches, Source: items.Source}, nil
}

func containerMatches(c model.Container, term string) bool {
	return containsAny(term, c.Name, c.Description, c.Location)
}

func itemMatches(item model.Item, term string) bool {
	return containsAny(term, item.Name, item.Description, item.Brand, item.Model, item.SerialNumber)
}

// containsAny expects term already lowercased.
func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
