// Package prompt renders the text prompts sent to the language model: one
// to classify unread email against the user's rankings and one to suggest
// specific topics from the top general preferences.
package prompt
