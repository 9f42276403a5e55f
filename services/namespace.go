package services

// NamespaceForChat derives the vector index partition for a conversation.
// Every upsert and query for a chat must go through this mapping; it is the
// only place the convention lives.
func NamespaceForChat(chatID string) string {
	return "chat-" + chatID
}
