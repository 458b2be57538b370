// Package extract recovers structured units from a model response.
//
// The model is asked for a bare JSON array but often wraps it in prose, so
// [Extractor.Extract] treats the first '[' and the last ']' of the response
// text as the array boundaries, parses what lies between them and validates
// each element strictly. Every failure is reported as a *section.Error; no
// partial result is ever returned.
package extract
