// Package structurer asks the model to split one text into labeled units.
//
// A [Structurer] composes the retrying transport with the response extractor:
// it builds the segmentation prompt, sends it as a single-turn Messages API
// request and extracts the resulting [section.Result]. Failures keep the kind
// reported by the transport or the extractor and are tagged with the stage
// they came from.
//
// Passing a previous result as the example asks the model to reuse the same
// type labels, which keeps two related texts comparable:
//
//	first, err := s.Structure(ctx, textA, "")
//	example, _ := first.Serialize()
//	second, err := s.Structure(ctx, textB, example)
package structurer
