// Package translator provides an Azure OpenAI chat-completions client that
// translates a message between two user profiles.
//
// # Prompting
//
// The system prompt carries both parties' display name, language, dialect and
// location and asks for a translation by meaning rather than word for word.
// The user message is the original text, untouched.
//
// # Configuration
//
// Requires endpoint, api_key and deployment; api_version, max_tokens and timeout
// have defaults.
//
// # Errors
//
// Every failure (transport, HTTP status, empty completion, context deadline)
// wraps domain.ErrTranslationFailed. The client never retries; callers decide.
package translator
