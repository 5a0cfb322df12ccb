package services

import "github.com/soulkun/soulkun-backend/internal/domain/goals"

// Step questions asked when the dialogue advances.
var stepQuestions = map[string]string{
	goals.StepWhy:      "まずは「なぜ」から考えてみよう！今の仕事を通じて、どんな自分になりたいクマ？",
	goals.StepWhat:     "いいね！じゃあ次は「何を」達成するか。具体的にどんな成果を出したいクマ？",
	goals.StepHow:      "あとは「どうやって」だけクマ！その目標に向けて、最初の一歩は何をするクマ？",
	goals.StepComplete: "目標設定、おつかれさまクマ！これからの頑張りを見守ってるクマ〜",
}

// Retry prompts per response strategy. Shown when an answer is classified NG
// and the step does not advance.
var strategyPrompts = map[string]string{
	goals.StrategyProceed:           "いいクマね！",
	goals.StrategyRedirectToCompany: "そっか、その気持ちも大事クマ。でもまずは、今の会社でできることから考えてみないクマ？",
	goals.StrategyAskSpecificity:    "なるほどクマ！もう少し具体的に教えてほしいクマ。数字や期限があるとなお良いクマ！",
	goals.StrategySelfFocus:         "大変な状況クマね…。その中で、自分自身ができることは何かあるクマ？",
	goals.StrategyInspire:           "焦らなくて大丈夫クマ！小さなことでもいいから、ちょっと気になってることはないクマ？",
	goals.StrategyMilestone:         "大きな夢、素敵クマ！そこに向かう最初のマイルストーンを決めてみないクマ？",
	goals.StrategyConnectToResult:   "それを続けると、どんな成果につながりそうクマ？",
	goals.StrategySuggestHuman:      "無理しないでほしいクマ…。まずは信頼できる人に相談してみるのはどうクマ？",
	goals.StrategyAddWorkGoal:       "プライベートの目標もいいクマね！あわせて仕事の目標もひとつ考えてみないクマ？",
	goals.StrategyClarify:           "ごめんクマ、うまく読み取れなかったクマ。もう一度教えてほしいクマ！",
	goals.StrategyAccept:            "わかったクマ。またいつでも声をかけてほしいクマ！",
}

const introPrompt = "目標設定を始めるクマ！3つの質問に答えるだけで、きみの目標が形になるクマ。"
const forcedAdvancePrompt = "ありがとうクマ！いったんこのまま次に進むクマ。あとで見直すこともできるクマ！"

func questionFor(step string) string {
	if q, ok := stepQuestions[step]; ok {
		return q
	}
	return ""
}

func promptFor(strategy string) string {
	if p, ok := strategyPrompts[strategy]; ok {
		return p
	}
	return strategyPrompts[goals.StrategyClarify]
}
