// Package llm invokes the language model that classifies email and suggests
// topics. Gemini is the only backend; tests substitute a fake Model.
package llm
