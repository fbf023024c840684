// Package gemini implements ai.AIProvider on the Google Gemini API using the
// google.golang.org/genai client. Embeddings go through Models.EmbedContent
// and chat through Models.GenerateContent, with system messages passed as
// the system instruction.
package gemini
