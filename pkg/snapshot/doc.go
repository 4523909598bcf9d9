// Package snapshot defines the ranked entity records shared by the scale,
// diff, and rendering packages.
//
// A [Snapshot] is the collection of [Record] values for one period (for
// example, the companies ranked by market capitalization in 2024). Records
// are identified by [Record.Key], a whitespace-normalized name produced by
// [NormalizeKey] at ingestion time.
//
// Two orderings exist side by side:
//
//   - Presentation order ([Snapshot.Presentation]): value descending. The
//     rank label drawn next to each bar is the 1-based position in this
//     order.
//   - Stored rank ([Record.Rank]): the rank column of the source data,
//     used by the diff package to order entries and exits.
//
// When source data disagrees between the two, chart labels and diff
// ordering disagree as well. Both are kept as observed in the data.
package snapshot
