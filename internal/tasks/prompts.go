package tasks

import (
	"fmt"
	"strings"
)

const jsonPrimer = "I will output JSON as instructed."

const cameoCategories = `01 Make Statement
02 Appeal
03 Express Intent to Cooperate
04 Consult
05 Engage in Diplomatic Cooperation
06 Engage in Material Cooperation
07 Provide Aid
08 Yield
09 Investigate
10 Demand
11 Disapprove
12 Reject
13 Threaten
14 Protest
15 Exhibit Military Posture
16 Reduce Relations
17 Coerce
18 Assault
19 Fight
20 Use Unconventional Mass Violence`

func cameoEventsPrompt(language string) string {
	return fmt.Sprintf(`You are an automated political event coder using the CAMEO 1.1b3 ontology.
You MUST output valid JSON only.

Step 1: choose exactly one top-level CAMEO category (01-20) for each event:
%s

Step 2: assign the most specific valid CAMEO code (3-4 digits) under that category.
All codes MUST be zero-padded strings. Never invent codes. Never output integers.

Step 3: order the events chronologically. event_order 1 is the event that happened first.

Extract ALL political events in the text. Each event has:
event_order (integer), source_actor (ISO-3166 + role), target_actor,
cameo_top_level, cameo_code, event_description, evidence (direct quotation),
confidence (0.0-1.0).

Output format:
{"events": [{"event_order": 1, "source_actor": "", "target_actor": "", "cameo_top_level": "", "cameo_code": "", "event_description": "", "evidence": "", "confidence": 0.0}]}
If there are no events output {"events": []}.

%s`, cameoCategories, LanguageClause(language))
}

func summaryPrompt(language string, words int) string {
	return fmt.Sprintf("You are an expert political analyst. Produce a %d-word summary. %s", words, LanguageClause(language))
}

func topicsPrompt(language string) string {
	return `Extract 2-3 very short noun-phrase topics. Output JSON only: {"topics": ["..."]}. ` + LanguageClause(language)
}

const topicsPrimer = "I will output JSON topics."

const clusterSystemPrompt = "You are a theme clustering engine."

func clusterPrompt(topics []string, language string) string {
	return fmt.Sprintf("Cluster these into 5-7 themes and describe them: %s. %s", strings.Join(topics, ", "), LanguageClause(language))
}

func relevanceSimpleSystem(a, b string) string {
	return fmt.Sprintf("You are an AI assistant with expertise in Turkish. "+
		"Analyze the provided news article and determine if it discusses a relationship, interaction, or event involving BOTH %s and %s. "+
		"Return a JSON object with keys: 'is_relevant' (boolean) and 'reason' (string in English).", a, b)
}

func relevanceCameoSystem() string {
	return "You are an expert political event coder specializing in the CAMEO (Conflict and Mediation Event Observations) framework, with expertise in Turkish. " +
		"You must determine if a valid interaction exists between two specific state actors. " +
		"Regardless of the language of the input article (Turkish, English, or Hebrew), your output JSON and reasoning must ALWAYS be in ENGLISH."
}

func relevanceBroadSystem(a, b string) string {
	return fmt.Sprintf("You are an expert international relations analyst fluent in English, Turkish, and Hebrew. "+
		"Your task is to analyze news articles for connections between %s and %s. "+
		"Regardless of the language of the input article, your output JSON and reasoning must ALWAYS be in ENGLISH.", a, b)
}

func relevanceCameoTask(a, b string) string {
	return fmt.Sprintf(`--- TASK ---
Determine if the text describes a CAMEO event involving BOTH %[1]s and %[2]s: an action taken by %[1]s affecting %[2]s, or by %[2]s affecting %[1]s.
Use the four CAMEO quad categories:
1. Verbal Cooperation (praise, regret, meetings, agreeing to negotiate).
2. Material Cooperation (deliveries, trade agreements, joint drills, aid).
3. Verbal Conflict (criticism, condemnation, ambassadors summoned for protest).
4. Material Conflict (expelling diplomats, cancelling exercises, seizing ships, military engagement).

--- EXCLUSION RULES (false) ---
- Both countries mentioned without interacting.
- Third-party conflicts unless one of the two explicitly reacts or intervenes.

--- OUTPUT FORMAT ---
Respond with this JSON object only:
{"is_relevant": true/false, "reason": "The specific CAMEO action in ENGLISH."}`, a, b)
}

func relevanceBroadTask(a, b string) string {
	return fmt.Sprintf(`--- TASK ---
Determine if there is a connection, interaction, or relationship involving BOTH %[1]s and %[2]s.
Use a BROAD definition. Mark as relevant if the news falls into any category:
1. Diplomatic and political: meetings, treaties, tensions, praise, ambassadors.
2. Economic and business: trade, energy, tourism, investment.
3. Military and security: arms sales, exercises, intelligence, conflict.
4. Social, public and cultural: protests, media disputes, communities, NGO activity.
5. Indirect or mediation: one country mediating for or reacting to the other.

--- EXCLUSION RULES (false) ---
- The two countries merely listed together in a generic list.

--- OUTPUT FORMAT ---
Respond with this JSON object only:
{"is_relevant": true/false, "reason": "A concise sentence in ENGLISH explaining why it was filtered IN or OUT."}`, a, b)
}

func sentimentPrompt(target, language string) string {
	upper := strings.ToUpper(target)
	return fmt.Sprintf(`You are an expert political psychologist.
TASK: Quantify the societal sentiment directed specifically TOWARDS %[1]s (the state, its citizens, or its companies).

SCOPE:
- Focus on non-governmental actors (public, unions, private sector, tourists, religious groups).
- The sentiment must be ABOUT %[2]s.
- A foreign group hostile to %[2]s scores negative. A %[2]s group defending it scores positive. Domestic dissent against its own government scores negative.
- Exclude purely government-to-government diplomacy or military orders.

SCORING (-1.0 to +1.0):
-1.0 to -0.8 extreme hostility; -0.7 to -0.3 criticism; -0.2 to +0.2 neutral or directed elsewhere;
+0.3 to +0.7 supportive or cooperative; +0.8 to +1.0 unity or deep alliance.

OUTPUT FORMAT (JSON):
{"sentiment_score": float, "sentiment_label": "string", "acting_group": "string", "description": "string (max 20 words)", "evidence": "string (short quote)"}

%[3]s`, upper, target, LanguageClause(language))
}

func sentimentSummaryPrompt(language string) string {
	return "Summarize this article (max 100 words). " + LanguageClause(language)
}

func filterSystemPrompt(a, b string) string {
	return fmt.Sprintf(`You are a multilingual relevance classifier. You MUST output valid JSON only. You understand English, Hebrew, and Turkish.

Your task is to determine whether an article is specifically about %[1]s interacting with %[2]s, or %[2]s interacting with %[1]s.

Interaction means diplomacy, negotiations, agreements, political or military cooperation, conflict, disputes, sanctions, threats, trade, joint initiatives, official statements by one state explicitly about the other, or actions by leaders, ministers, embassies, diplomats, or institutions of one country directly concerning the other.

Not interaction: incidental mentions, official titles alone, articles about other topics without bilateral engagement, travel, geography, ethnicity, background references, or historical context.

When in doubt, answer false.

Output ONLY JSON in the form: {"relevant": true} or {"relevant": false}`, a, b)
}

func filterUserPrompt(a, b, text string) string {
	return fmt.Sprintf("Determine if this article is about %[1]s interacting with %[2]s, or %[2]s interacting with %[1]s.\n"+
		"Respond ONLY in json: {\"relevant\": true/false}\n\nArticle:\n%[3]s", a, b, text)
}
