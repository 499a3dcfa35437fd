// Package chat implements the Q&A conversation behind /chat/qa.
//
// A [Service] keeps one conversation per dashboard session, seeded with a greeting, and asks a
// [Responder] for each assistant reply. Two responders exist:
//
//   - [MockResponder] : canned replies after an artificial delay, failing at random to exercise retry
//   - [GeminiResponder] : replies generated by the Gemini API
//
// A failed send removes the user's message again and returns a [SendError] carrying the original input,
// so the page can put it back in the text box and offer a retry. Regenerating a reply that fails is
// reported the same way but is not retryable.
package chat
