// Package mock provides deterministic test doubles for ai.Embedder, llms.Model
// and ai.AIProvider so tests run without an upstream AI service.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("boom")
//	}
//	...
//	count := provider.GetMockChatModel().CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: hashed bag-of-words vectors, so texts sharing words are similar
//   - MockChatModel: answers with DefaultAnswerPrefix plus the last message text
//   - MockProvider: aggregates both
package mock
