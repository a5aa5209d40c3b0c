// Package dataset prepares fine-tuning data for the category classifier.
// It cleans a labeled CSV export, reserves a fixed leading block of rows as
// a held-out test set, and splits the remainder into train/validation/test
// JSONL files with per-category proportional allocation.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// TestReserve is how many leading CSV rows are always held out for the test
// set, before any shuffling. The reserved block is counted on raw rows, so
// malformed rows inside it still consume reservation slots.
const TestReserve = 75

// Categories are the model-facing labels, in prompt order. The classifier
// is fine-tuned to emit exactly one of these strings.
var Categories = []string{
	"Glorification/Promotion",
	"Terrorist Account",
	"Recruitment",
	"Direct Threat/Incitement",
	"Financing Terrorism",
	"None",
}

// Policy is the moderation policy text embedded in every training prompt.
const Policy = `Our platform prohibits content that supports or represents violent extremist organizations and entities, including those designated by the U.S. government as Foreign Terrorist Organizations. Prohibited content may fall into the following categories: Glorification and/or Promotion of Terrorism or a Terrorist Entity, Financing Terrorist Activity, Terrorist Recruitment, Direct Threats/Incitement to Violence, and Accounts Representing Terrorist Entities.

What is a Violation of our Policy?
- Financing Terrorism: Providing material support to a designated terrorist organization is a federal crime in the U.S. (18 USC 2339B) and is strictly prohibited on our platform. Examples may include:
    - Requests for donations to fund terrorist activities or groups.
    - Soliciting funds for weapons, explosives, or other tools of violence.
    - Encouraging others to provide material support for terrorism.
    - Sharing links to GoFundMe pages or crypto trading sites meant to support terrorist organizations.

- Glorification/Promotion of Terrorism: We do not allow any content that glorifies or in any way promotes the actions or ideology of terrorist groups. Examples may include:
    - Celebrating or praising terrorist attacks or organizations.
    - Sharing images/videos that depict violence in a way that seeks to glorify or justify them.
    - Posting or linking to manifestos, speeches, and/or writings of terrorist leaders.
    - Justifying terrorist actions as necessary or heroic.

- Incitement/Direct Threat: We remove content that calls for attacks on the general public or specific individuals. This includes content that promotes violence due to a specific cause. Examples may include:
    - Direct threats of violence towards individuals or groups.
    - Calls to or instructions for violent attacks.
    - Content that incites others to commit acts of terrorism.
    - Instructions on how to carry out violent attacks.

- Terrorist Recruitment: We do not allow content that is meant to recruit individuals to join terrorist organizations. Additionally, we remove content that also sympathizes with terrorism. Examples may include:
    - Posts or messages that explicitly recruit individuals to join terrorist groups.
    - Propaganda that romanticizes membership of a terrorist organization.
    - Announcements or invitations to attend events or training camps organized by terrorist organizations.`

// Row is one labeled example: a message and its category label.
type Row struct {
	Text     string
	Category string
}

// Example is one JSONL record in the fine-tuning format.
type Example struct {
	InputText  string `json:"input_text"`
	OutputText string `json:"output_text"`
}

// Split holds the three output sets of a dataset split.
type Split struct {
	Train []Row
	Val   []Row
	Test  []Row
}

// nullStripper removes NUL bytes from the wrapped reader. Spreadsheet
// exports occasionally carry them and they break the CSV reader.
type nullStripper struct {
	r io.Reader
}

// StripNullBytes wraps r so that all NUL bytes are dropped from the stream.
func StripNullBytes(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (s *nullStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	kept := 0
	for i := 0; i < n; i++ {
		if p[i] != 0 {
			p[kept] = p[i]
			kept++
		}
	}
	return kept, err
}

// ReadRows reads raw CSV records. Ragged rows are allowed; validation and
// trimming happen at split time so the leading test reservation counts raw
// rows, malformed ones included.
func ReadRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(StripNullBytes(r))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv: %w", err)
	}
	return records, nil
}

// cleanRow trims each field and drops empties. Returns the row and true
// only if exactly a (text, category) pair remains.
func cleanRow(record []string) (Row, bool) {
	fields := make([]string, 0, len(record))
	for _, f := range record {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) != 2 {
		return Row{}, false
	}
	return Row{Text: fields[0], Category: fields[1]}, true
}

func knownCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// SplitRows splits raw CSV records into train/validation/test sets.
//
// The first TestReserve raw rows always go to the test set (valid rows with
// a known category only). The remaining valid rows are grouped by category,
// shuffled, and allocated to train and validation proportionally to each
// category's share of the remainder; whatever is left over joins the test
// set. Malformed rows are skipped with a log line.
func SplitRows(records [][]string, trainSize, valSize int, rng *rand.Rand) Split {
	var reserved [][]string
	var remaining [][]string
	if len(records) > TestReserve {
		reserved = records[:TestReserve]
		remaining = records[TestReserve:]
	} else {
		reserved = records
	}

	var split Split
	for _, record := range reserved {
		row, ok := cleanRow(record)
		if !ok || !knownCategory(row.Category) {
			log.Printf("[dataset] skipping reserved row: %q", record)
			continue
		}
		split.Test = append(split.Test, row)
	}

	byCategory := make(map[string][]string)
	total := 0
	for _, record := range remaining {
		row, ok := cleanRow(record)
		if !ok {
			log.Printf("[dataset] skipping row: %q", record)
			continue
		}
		byCategory[row.Category] = append(byCategory[row.Category], row.Text)
		total++
	}

	// Map order is random; iterate sorted so a seeded rng is reproducible.
	labels := make([]string, 0, len(byCategory))
	for label := range byCategory {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		texts := byCategory[label]
		rng.Shuffle(len(texts), func(i, j int) {
			texts[i], texts[j] = texts[j], texts[i]
		})

		share := float64(len(texts)) / float64(total)
		trainCount := int(math.Round(float64(trainSize) * share))
		valCount := int(math.Round(float64(valSize) * share))
		if trainCount+valCount > len(texts) {
			trainCount = len(texts)
			valCount = 0
		}

		for _, text := range texts[:trainCount] {
			split.Train = append(split.Train, Row{Text: text, Category: label})
		}
		for _, text := range texts[trainCount : trainCount+valCount] {
			split.Val = append(split.Val, Row{Text: text, Category: label})
		}
		for _, text := range texts[trainCount+valCount:] {
			split.Test = append(split.Test, Row{Text: text, Category: label})
		}
	}

	rng.Shuffle(len(split.Train), func(i, j int) {
		split.Train[i], split.Train[j] = split.Train[j], split.Train[i]
	})
	rng.Shuffle(len(split.Val), func(i, j int) {
		split.Val[i], split.Val[j] = split.Val[j], split.Val[i]
	})
	rng.Shuffle(len(split.Test), func(i, j int) {
		split.Test[i], split.Test[j] = split.Test[j], split.Test[i]
	})
	return split
}

// Prompt builds the classification prompt for one message.
func Prompt(message string) string {
	return strings.TrimSpace(fmt.Sprintf(
		"You are a content moderator for a social media platform. You are evaluating the following message posted on your platform:\n%s\n\nUsing the following policy guidelines, evaluate whether the message violates the policies outlined. Choose the best answer between %s, and %s for which category the message belongs to. Evaluate based off of our policy, and output the exact category it belongs to. Don't output anything else. Here is the policy:\n%s",
		message,
		strings.Join(Categories[:len(Categories)-1], ", "),
		Categories[len(Categories)-1],
		Policy,
	))
}

// WriteJSONL writes rows as JSONL fine-tuning examples and returns how many
// records were written.
func WriteJSONL(w io.Writer, rows []Row) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, row := range rows {
		ex := Example{
			InputText:  Prompt(row.Text),
			OutputText: strings.TrimSpace(row.Category),
		}
		if err := enc.Encode(&ex); err != nil {
			return i, fmt.Errorf("dataset: write jsonl: %w", err)
		}
	}
	return len(rows), nil
}

// Counts tallies rows per category label.
func Counts(rows []Row) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Category]++
	}
	return counts
}
