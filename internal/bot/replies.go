package bot

const (
	replyWelcome = "🎭 Welcome to Anonymous Chat Bot! 🎭\n\n" +
		"Commands:\n" +
		"/chat - Start an anonymous conversation\n" +
		"/end - End current conversation\n" +
		"/help - Show this help message\n\n" +
		"Your identity is completely anonymous. Have fun chatting!"

	replyHelp = "🎭 Anonymous Chat Bot Commands:\n\n" +
		"/start - Welcome message\n" +
		"/chat - Find a random person to chat with\n" +
		"/end - End your current conversation\n" +
		"/help - Show this help message\n\n" +
		"Just send a message when you're in a conversation to chat anonymously!"

	replyStartFirst = "Please use /start first to initialize your account."

	replyAlreadyInConversation = "You're already in a conversation! Use /end to end it first."
	replyAlreadyWaiting        = "You're already waiting for a chat partner. Please be patient!"
	replyQueued                = "🔍 Looking for a chat partner...\n" +
		"Please wait while we find someone for you to chat with!\n" +
		"You'll be notified when someone joins."
	replyMatched = "🎉 Chat partner found! You can now start chatting anonymously.\n" +
		"Send any message to continue the conversation.\n" +
		"Use /end when you want to end the chat."

	replyEnded = "👋 Conversation ended! Thanks for chatting.\n" +
		"Use /chat to start a new anonymous conversation."
	replyPartnerEnded = "👋 Your chat partner has ended the conversation.\n" +
		"Use /chat to start a new anonymous conversation."
	replyWaitCancelled = "❌ Stopped looking for a chat partner."
	replyNothingToEnd  = "You're not in a conversation or waiting queue."

	replyNotInConversation = "You're not in a conversation! Use /chat to start chatting with someone."
	replyDeliveryFailed    = "⚠️ Failed to deliver message. Your chat partner might be offline."
	replyTextOnly          = "Only text messages can be relayed."
	replyEmptyMessage      = "Empty messages are not relayed."
	replyUnknownCommand    = "Unknown command. Use /help to see what I understand."

	// ReplyUnavailable is sent by transports when Handle fails.
	ReplyUnavailable = "😵 Something went wrong on our side. Please try again in a moment."
)
