package flow

const (
	msgWelcome = "Welcome! 👋\n" +
		"This is the tutor position intake.\n" +
		"Stage 1 is a short survey, stage 2 is three practical cases.\n" +
		"Press the button below to begin."

	msgUnknown = "I didn't understand that. Send /start to see the menu."

	msgSurveyAlreadyDone = "You have already completed the survey. It cannot be retaken."

	msgSurveyComplete = "👏 You finished stage 1 of the tutor intake.\n" +
		"➡ Stage 2 is next: three practical cases.\n" +
		"⏱ Expect about 30 minutes for the case answers.\n" +
		"Press below to continue 👇"

	msgSurveyCancelled = "Survey ended early. Your answers so far have been recorded.\n" +
		"We will be in touch. Thank you."

	msgCasesRequireSurvey = "Please complete the survey first."

	msgCasesAlreadyDone = "You have already completed the cases."

	msgCasesComplete = "You answered all the questions! 🏁\n" +
		"We will contact you shortly.\n" +
		"Thank you."

	msgCasesInfo = "You can read about what a tutor does at our school below 👇"

	msgCasesCancelled = "Case stage ended early. Your answers so far have been recorded.\n" +
		"We will be in touch. Thank you."
)

// CancelLabel is the reply-keyboard button that ends the current stage early.
// The router matches incoming text against it verbatim.
const CancelLabel = "❌ Cancel"

// WelcomeText is the /start greeting; exported for the router.
const WelcomeText = msgWelcome

// UnknownText is the fallback for unrecognized input outside any session.
const UnknownText = msgUnknown
