package main

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/demoseed/treeseed/pkg/nodeio"
)

var (
	forestTitles = []string{"Categories", "Brands", "Collections", "Occasions", "Materials"}
	demoWords    = []string{
		"Apparel", "Shoes", "Accessories", "Electronics", "Home", "Garden",
		"Kitchen", "Outdoor", "Sports", "Toys", "Books", "Beauty",
		"Jewelry", "Bags", "Watches", "Furniture", "Lighting", "Decor",
		"Bedding", "Bath", "Women", "Men", "Kids", "Sale",
	}
)

func parseScale(raw string) (int, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return 0, errors.New("scale is required")
	}
	mult := 1
	if strings.HasSuffix(raw, "k") {
		mult = 1000
		raw = strings.TrimSuffix(raw, "k")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid scale: %q", raw)
	}
	return n * mult, nil
}

// buildDataset generates forests of count nodes each. Ids are sequential
// across forests; names are drawn from seed so that name order and id order
// disagree, which is what the indexer's sibling ordering is for.
func buildDataset(profile string, count, forests int, seed int64) (nodeio.Records, error) {
	if count <= 0 {
		return nil, errors.New("scale must be positive")
	}
	if forests <= 0 {
		return nil, errors.New("forests must be positive")
	}
	rng := rand.New(rand.NewSource(seed))

	var out nodeio.Records
	next := int64(1)
	for f := 0; f < forests; f++ {
		forest := fmt.Sprintf("taxonomy-%d", f+1)
		title := forestTitles[f%len(forestTitles)]
		if f >= len(forestTitles) {
			title = fmt.Sprintf("%s %d", title, f/len(forestTitles)+1)
		}
		nodes, err := buildForest(profile, count, next, rng)
		if err != nil {
			return nil, err
		}
		nodes[0].Name = title
		for i := range nodes {
			nodes[i].Forest = forest
		}
		out = append(out, nodes...)
		next += int64(count)
	}
	return out, nil
}

func buildForest(profile string, count int, firstID int64, rng *rand.Rand) (nodeio.Records, error) {
	name := func(i int) string {
		return fmt.Sprintf("%s %04d", demoWords[rng.Intn(len(demoWords))], i)
	}
	id := func(i int) int64 { return firstID + int64(i) }

	nodes := make(nodeio.Records, 0, count)
	nodes = append(nodes, nodeio.Record{ID: id(0), Name: name(0)})
	if count == 1 {
		return nodes, nil
	}

	switch profile {
	case "balanced":
		maxChildren := 4
		queue := []int64{id(0)}
		children := map[int64]int{}
		for i := 1; i < count; i++ {
			parent := queue[0]
			nodes = append(nodes, nodeio.Record{ID: id(i), Name: name(i), ParentID: &parent})
			queue = append(queue, id(i))
			children[parent]++
			if children[parent] >= maxChildren {
				queue = queue[1:]
			}
		}
		return nodes, nil
	case "wide":
		k := 40
		if k > count-1 {
			k = count - 1
		}
		level1 := make([]int64, 0, k)
		root := id(0)
		for i := 1; i <= k; i++ {
			nodes = append(nodes, nodeio.Record{ID: id(i), Name: name(i), ParentID: &root})
			level1 = append(level1, id(i))
		}
		j := k + 1
		for j < count {
			for _, parent := range level1 {
				if j >= count {
					break
				}
				p := parent
				nodes = append(nodes, nodeio.Record{ID: id(j), Name: name(j), ParentID: &p})
				j++
			}
		}
		return nodes, nil
	case "deep":
		parent := id(0)
		for i := 1; i < count; i++ {
			p := parent
			nodes = append(nodes, nodeio.Record{ID: id(i), Name: name(i), ParentID: &p})
			parent = id(i)
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
}
