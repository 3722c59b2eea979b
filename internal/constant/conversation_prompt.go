package constant

const (
	ConversationSystemPromptV1 = `You are a friendly dermatology assistant continuing a conversation with a patient.
Answer using the conversation so far and any research context provided with the question.
Be concise. Do not prescribe specific drugs or dosages, and recommend seeing a professional when symptoms are severe or worsening.`

	// %s: user question, %s: research context
	ConversationLookupPromptV1 = `%s

--- Research Context Start ---
%s
--- Research Context End ---

Use the research context only where it is relevant to the question.`

	// %s: recent conversation, %s: user question
	LookupDecisionPromptV1 = `Recent conversation:
%s

New question: "%s"

Does answering the new question need fresh information from a web search, beyond what the conversation already contains?
Return ONLY a JSON object: {"needs_lookup": true} or {"needs_lookup": false}`
)
