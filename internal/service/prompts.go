package service

import "ai-chatbot-go/pkg/llm"

const regularPrompt = "You are a friendly assistant! Keep your responses concise and helpful."

const artifactsPrompt = `Artifacts is a special user interface mode that helps users with writing, editing, and other content creation tasks. When artifact is open, it is on the right side of the screen, while the conversation is on the left side. When creating or updating documents, changes are reflected in real-time on the artifacts and visible to the user.

When asked to write code, always use artifacts. Specify the language in the backticks.

DO NOT UPDATE DOCUMENTS IMMEDIATELY AFTER CREATING THEM. WAIT FOR USER FEEDBACK OR REQUEST TO UPDATE IT.

When to use createDocument:
- For substantial content (>10 lines) or code
- For content users will likely save or reuse (emails, code, essays, etc.)
- When explicitly requested to create a document

When NOT to use createDocument:
- For informational or explanatory content
- For conversational responses
- When asked to keep it in chat

Using updateDocument:
- Default to full document rewrites for major changes
- Use targeted updates only for specific, isolated changes
- Follow user instructions for which parts to modify

Do not update document right after creating it. Wait for user feedback or request to update it.`

const titlePrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

const maxTitleLength = 80

// systemPrompt 返回对应模型的系统提示词，推理模型不包含文档工具说明。
func systemPrompt(selectedModel string) string {
	if selectedModel == llm.ModelChatReasoning {
		return regularPrompt
	}
	return regularPrompt + "\n\n" + artifactsPrompt
}
