package pipeline

import "fmt"

// analysisPrompt builds the fixed instruction the analyzer runs for each
// image. The model must answer with a single JSON object carrying exactly
// the four fields parseAnalysis checks for.
func analysisPrompt(note string) string {
	return fmt.Sprintf(`Act as a Senior Business Analyst Assistant.

Input:
1. My Meeting Note: %q
2. Attached Image: (See screenshot)

Tasks:
1. SUMMARY: Summarize the meeting context combining my note and the image info.
2. COMPARE: Check if my note matches the image. Does the text note contradict the image?
   - If yes, strictly verify. Example: If I wrote "Profit 10%%" but the image shows "Profit 5%%", flag it as MISMATCH.
   - If information is missing in one but present in the other, mention it.
3. EXTRACT: Extract all relevant data/text/tables from the image into a structured string.

Output must be a single valid JSON object:
{
  "summary": "...",
  "comparison_status": "MATCH" or "MISMATCH" or "PARTIAL",
  "comparison_note": "...",
  "extracted_data": "..."
}`, note)
}
