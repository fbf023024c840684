package chat

import (
	"github.com/tmc/langchaingo/prompts"
)

// Template variables.
const (
	varHistory = "history"
	varInput   = "input"
	varContext = "context"
)

// ContextualizeSystemPrompt asks the model to rewrite a follow-up question
// so it can be understood without the chat history.
const ContextualizeSystemPrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, just " +
	"reformulate it if needed and otherwise return it as is."

// QASystemPrompt instructs the model to answer from the retrieved context.
const QASystemPrompt = "You are an assistant for question-answering tasks. Use " +
	"the following pieces of retrieved context to answer the " +
	"question. If you don't know the answer, just say that you " +
	"don't know." +
	"\n\n" +
	"{{.context}}"

// DocumentSeparator joins retrieved documents in the QA prompt.
const DocumentSeparator = "\n\n"

func newContextualizePrompt() prompts.ChatPromptTemplate {
	return prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(ContextualizeSystemPrompt, nil),
		prompts.MessagesPlaceholder{VariableName: varHistory},
		prompts.NewHumanMessagePromptTemplate("{{.input}}", []string{varInput}),
	})
}

func newQAPrompt() prompts.ChatPromptTemplate {
	return prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(QASystemPrompt, []string{varContext}),
		prompts.MessagesPlaceholder{VariableName: varHistory},
		prompts.NewHumanMessagePromptTemplate("{{.input}}", []string{varInput}),
	})
}
