package clipper

// Prompts are rendered with fmt.Sprintf; every %s placeholder receives an
// indented JSON document.

const beatSystemPrompt = "You split spoken transcripts into topic beats for short-form clip extraction. You answer with JSON only."

const beatPrompt = `You are analyzing a video transcript to find topic/beat boundaries.

Each sentence has:
- index (0-based)
- text
- gapBeforeSec (optional): pause in seconds before the sentence

A beat is a contiguous block of sentences that form ONE clear idea (intro, tip, story, conclusion).

Return a JSON array of beats, each an object with:
- startSentenceIndex (number, 0-based, inclusive)
- endSentenceIndex (number, 0-based, inclusive)

Rules:
- Beats must not overlap and must cover every sentence in order.
- Prefer more, shorter beats over fewer long ones when the content clearly shifts.
- A gap > 1.5s often indicates a boundary.
- The first beat starts at index 0; the last beat ends at index %d.

Sentences (JSON):
%s

Return ONLY the JSON array.`

const scoreSystemPrompt = "You are an expert short-form content editor for TikTok, Instagram Reels and YouTube Shorts. You answer with JSON only."

const scorePrompt = `You are given candidate segments with:
- startTime and endTime in seconds (relative to the full video)
- text (transcript of just that segment)

Every segment starts at the start of a sentence and ends at the end of a sentence. Use each segment's startTime and endTime as-is.

Judge each candidate on:
1) HOOK: the first sentence must grab attention (surprise, bold opinion, curiosity gap, clear promise, emotion). Slow or generic setups are rejected.
2) ONE CLEAR IDEA: the clip makes sense on its own and ends on a takeaway or punchline, never on a fragment like "I'll" or a lead-in like "So next".
3) SHORT-FORM FIT: concise and conversational, no filler or logistics.

confidence is between 0 and 1. Only return clips with confidence >= 0.6. Prefer fewer, stronger clips.

Return a JSON array of up to %d objects with:
- startTime (number)
- endTime (number)
- title (string, <= 80 chars)
- keywords (array of strings)
- confidence (number 0-1)
- reason (string, why the hook and the idea work)

Candidates (JSON):
%s

Return ONLY the JSON array.`

const gateSystemPrompt = "You judge short-form video clips. You answer with JSON only."

const gatePrompt = `For each clip below rate:
1) hookScore (1-10): does the opening grab attention in the first 3-5 seconds?
2) payoffScore (1-10): does the ending land as a conclusion, takeaway or punchline?
3) oneClearIdea (true/false): does the clip convey one complete idea on its own?

Return a JSON array with one object per clip, in the same order, with keys: startTime, endTime, hookScore, payoffScore, oneClearIdea.

Clips (JSON):
%s

Return ONLY the JSON array.`

const refineSystemPrompt = "You trim short-form clips to clean sentence boundaries. You answer with JSON only."

const refinePrompt = `Each clip below is defined by sentence indices (0-based) and its sentences.

For each clip decide:
1) START: if the first 1-2 sentences are setup without a hook ("So", "Anyway", "As I was saying") or a short fragment ("Effectively.", "Well."), return a later startSentenceIndex. Otherwise keep it.
2) END: if the last 1-2 sentences lead into the next topic ("So next", "Number two", "And then") or are incomplete ("I'll", "So we", no final punctuation), return an earlier endSentenceIndex. Otherwise keep it.

startSentenceIndex must be <= endSentenceIndex. Return the same indices when no trim is needed.

Return a JSON array with one object per clip, in the same order: startSentenceIndex (number), endSentenceIndex (number).

Clips (JSON):
%s

Return ONLY the JSON array.`
