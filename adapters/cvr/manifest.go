package cvr

import (
	"fmt"
	"sort"
	"strings"

	"gorla/internal/errors"
)

// ManifestBatch is one row of a ballot manifest: a physical batch of cards.
type ManifestBatch struct {
	Container string
	Tabulator string
	BatchName string
	Ballots   int
}

// PhantomTabulator names the synthetic batch appended when the manifest does
// not account for every card that might have been cast.
const PhantomTabulator = "phantom"

// PrepManifest prepares a ballot manifest for sampling. Every listed CVR is
// assumed to have a corresponding card in the manifest; if the manifest holds
// fewer cards than maxCards, a phantom batch is appended to make up the
// difference. Returns the augmented manifest, the number of cards the
// original manifest accounted for, and the number of phantoms added.
func PrepManifest(manifest []ManifestBatch, maxCards, nCVRs int) ([]ManifestBatch, int, int, error) {
	manifestCards := 0
	for _, b := range manifest {
		manifestCards += b.Ballots
	}
	if manifestCards > maxCards {
		return nil, 0, 0, errors.Precondition(
			fmt.Sprintf("cards in manifest %d exceeds max possible %d", manifestCards, maxCards))
	}
	if manifestCards < nCVRs {
		return nil, 0, 0, errors.Precondition(
			fmt.Sprintf("number of CVRs %d exceeds number of cards in the manifest %d", nCVRs, manifestCards))
	}
	phantoms := maxCards - manifestCards
	out := append([]ManifestBatch(nil), manifest...)
	if phantoms > 0 {
		out = append(out, ManifestBatch{
			Tabulator: PhantomTabulator,
			BatchName: "1",
			Ballots:   phantoms,
		})
	}
	return out, manifestCards, phantoms, nil
}

// SampledCard identifies one card drawn from the manifest.
type SampledCard struct {
	Container   string
	Tabulator   string
	BatchName   string
	CardInBatch int
	ID          string
}

// SampleOrder records where in the sampling sequence a card was drawn.
type SampleOrder struct {
	SelectionOrder int
	Serial         int
}

// SampleFromManifest resolves 1-indexed card serials against the manifest
// (already augmented with phantoms). Returns the sampled cards sorted by
// identifier, the draw order per card, and manual-interpretation phantoms for
// sampled phantom cards.
func SampleFromManifest(manifest []ManifestBatch, sample []int) ([]SampledCard, map[string]SampleOrder, []*CVR) {
	cum := make([]int, len(manifest)+1)
	for i, b := range manifest {
		cum[i+1] = cum[i] + b.Ballots
	}
	cards := make([]SampledCard, 0, len(sample))
	order := make(map[string]SampleOrder, len(sample))
	var mvrPhantoms []*CVR
	for i, serial := range sample {
		s := serial - 1
		batch := sort.SearchInts(cum[1:], s+1)
		cardInBatch := s - cum[batch] + 1
		b := manifest[batch]
		cardID := fmt.Sprintf("%s-%s-%d", b.Tabulator, b.BatchName, cardInBatch)
		cards = append(cards, SampledCard{
			Container:   b.Container,
			Tabulator:   b.Tabulator,
			BatchName:   b.BatchName,
			CardInBatch: cardInBatch,
			ID:          cardID,
		})
		if b.Tabulator == PhantomTabulator {
			mvrPhantoms = append(mvrPhantoms, NewPhantom(cardID))
		}
		order[cardID] = SampleOrder{SelectionOrder: i, Serial: serial}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, order, mvrPhantoms
}

// SampleFromCVRs resolves 1-indexed serials against a CVR list: returns the
// card identifiers, the draw order, the sampled CVRs, and
// manual-interpretation phantoms for sampled phantom records. CVR ids are
// assumed to be batch and card number joined with an underscore, Hart's
// format.
func SampleFromCVRs(cvrList []*CVR, manifest []ManifestBatch, sample []int) ([]SampledCard, map[string]SampleOrder, []*CVR, []*CVR, error) {
	byBatch := make(map[string]ManifestBatch, len(manifest))
	for _, b := range manifest {
		byBatch[b.BatchName] = b
	}
	cards := make([]SampledCard, 0, len(sample))
	order := make(map[string]SampleOrder, len(sample))
	cvrSample := make([]*CVR, 0, len(sample))
	var mvrPhantoms []*CVR
	for i, serial := range sample {
		record := cvrList[serial-1]
		cvrSample = append(cvrSample, record)
		parts := strings.SplitN(record.ID(), "_", 2)
		if len(parts) != 2 {
			return nil, nil, nil, nil, errors.InvalidInput(
				fmt.Sprintf("CVR id %q is not in batch_card format", record.ID()))
		}
		batch := parts[0]
		card := SampledCard{BatchName: batch, ID: record.ID()}
		if record.Phantom() {
			mvrPhantoms = append(mvrPhantoms, NewPhantom(record.ID()))
		} else {
			card.Tabulator = byBatch[batch].Tabulator
			card.Container = byBatch[batch].Container
		}
		cards = append(cards, card)
		order[record.ID()] = SampleOrder{SelectionOrder: i, Serial: serial}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, order, cvrSample, mvrPhantoms, nil
}
