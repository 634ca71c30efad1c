// Package prompts holds the fixed system prompts for the two data set
// variants. The tool-protocol instructions are generated from the live
// tool list and appended by the caller.
package prompts

import "strings"

// Dataset identifiers accepted by ForDataset.
const (
	DatasetWerkstatt = "werkstatt"
	DatasetGesetze   = "gesetze"
)

const werkstattPrompt = `You are an assistant for a car repair shop. You answer questions about
the shop's service records: past repairs, parts used, costs and vehicle
histories. The records are stored as files you can inspect with the
available tools. Ground every answer in the records you actually read;
when the records do not contain the answer, say so. Answer in the
language the user writes in.`

const gesetzePrompt = `You are an assistant for German statute and case law. You answer
questions about a corpus of court decisions and the statutes they cite:
rulings, guiding principles (Leitsätze), operative parts (Tenor) and
cross-references. The corpus is stored as files you can inspect with the
available tools. Quote file numbers and courts precisely, ground every
answer in the documents you actually read, and say when the corpus does
not contain the answer. You provide legal information, not legal advice.
Answer in the language the user writes in.`

const fallbackPrompt = `You are a helpful assistant. You answer questions about a set of data
files you can inspect with the available tools. Ground every answer in
the files you actually read; when they do not contain the answer, say so.`

// ForDataset returns the persona prompt for a data set variant. Unknown
// variants get a generic prompt rather than an error so that custom data
// directories still work.
func ForDataset(dataset string) string {
	switch strings.ToLower(dataset) {
	case DatasetWerkstatt:
		return werkstattPrompt
	case DatasetGesetze:
		return gesetzePrompt
	default:
		return fallbackPrompt
	}
}

// System combines the persona prompt with the generated tool-protocol
// instructions into the full system message.
func System(dataset, toolInstructions string) string {
	persona := ForDataset(dataset)
	if toolInstructions == "" {
		return persona
	}
	return persona + "\n\n" + toolInstructions
}
