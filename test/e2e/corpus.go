// Package e2e runs the full import, index and search path against every storage backend.
package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

// QueryTestCase is a query and the item ID that must rank first for it.
type QueryTestCase struct {
	Query      string
	ExpectedID string
}

// Corpus holds items and the queries used to check them.
type Corpus struct {
	Items     []models.Item
	TestCases []QueryTestCase
}

// topics pairs a signature phrase with the words around it. Signature words appear in exactly one item.
var topics = []struct {
	signature string
	body      string
}{
	{"glacier moraine", "sediment left behind as ice retreats across a valley"},
	{"sourdough starter", "flour and water kept alive between bakes"},
	{"quasar redshift", "light from distant galaxies stretched by expansion"},
	{"bonsai pruning", "shaping small trees over many seasons"},
	{"tidal estuary", "where river water mixes with the sea twice a day"},
	{"origami crane", "a folded paper bird made from one square sheet"},
	{"espresso crema", "the foam on top of a well pulled shot"},
	{"volcanic obsidian", "glass that forms when lava cools very quickly"},
	{"monarch migration", "butterflies travelling thousands of miles each autumn"},
	{"harpsichord keyboard", "plucked strings rather than hammered ones"},
	{"coral bleaching", "reefs losing colour when the water gets too warm"},
	{"falconry hood", "keeps a hunting bird calm before release"},
	{"kimchi fermentation", "cabbage and chilli left to sour for weeks"},
	{"lighthouse lens", "a fresnel design that throws light far out to sea"},
	{"cartography projection", "flattening the globe always distorts something"},
	{"beekeeping smoker", "calms the hive while frames are inspected"},
	{"mahjong tiles", "a table game played with four players"},
	{"sundial gnomon", "the edge whose shadow tells the hour"},
	{"tapestry loom", "weaving pictures thread by thread"},
	{"aurora borealis", "charged particles lighting up the polar sky"},
	{"parquet flooring", "wooden blocks laid in geometric patterns"},
	{"saffron harvest", "stigmas picked by hand from crocus flowers"},
	{"submarine sonar", "pulses of sound used to find objects underwater"},
	{"calligraphy brush", "ink strokes with varying pressure and width"},
	{"meteorite crater", "an impact scar that may last for millions of years"},
	{"accordion bellows", "air pushed through reeds to make a tone"},
	{"tundra permafrost", "ground that stays frozen through the summer"},
	{"marathon pacing", "running even splits over a long race"},
	{"porcelain kiln", "firing clay at very high temperatures"},
	{"chess gambit", "giving up material early for an attack"},
	{"orchid greenhouse", "humid rooms for delicate tropical plants"},
	{"blacksmith anvil", "hot iron hammered into shape"},
	{"telescope mirror", "polished glass that gathers faint starlight"},
	{"vineyard terroir", "soil and climate that flavour the grapes"},
	{"puffin colony", "seabirds nesting on steep northern cliffs"},
	{"typewriter ribbon", "inked fabric struck by metal letters"},
	{"canyon erosion", "rivers cutting rock over long ages"},
	{"mosaic tesserae", "small coloured pieces set into mortar"},
	{"lantern festival", "paper lights released into the night"},
	{"quilting patchwork", "scraps of cloth sewn into a blanket"},
}

// BuildCorpus returns one item per topic and one query per item.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for i, tp := range topics {
		id := fmt.Sprintf("item-%02d", i+1)
		c.Items = append(c.Items, models.Item{
			ID:   id,
			Text: tp.signature + " " + tp.body,
		})
		c.TestCases = append(c.TestCases, QueryTestCase{Query: tp.signature, ExpectedID: id})
	}
	return c
}

// WriteJSONL splits the corpus items across files of at most perFile lines under dir/<n>/items.jsonl.
func (c *Corpus) WriteJSONL(dir string, perFile int) ([]string, error) {
	var paths []string
	for start, n := 0, 0; start < len(c.Items); start, n = start+perFile, n+1 {
		end := start + perFile
		if end > len(c.Items) {
			end = len(c.Items)
		}
		var b strings.Builder
		for _, item := range c.Items[start:end] {
			line, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			b.Write(line)
			b.WriteByte('\n')
		}
		sub := filepath.Join(dir, fmt.Sprintf("part-%d", n))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, err
		}
		path := filepath.Join(sub, "items.jsonl")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
