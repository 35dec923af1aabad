package prompts

// ============================================================================
// Insight Prompts (cluster labels, video ideas, pinned replies)
// ============================================================================

// InsightSystemPrompt defines the role for cluster insight generation.
const InsightSystemPrompt = `You are an expert YouTube strategist.`

// ClusterInsightsHeader opens the cluster insight prompt.
// Arguments: channel name, context block, cluster count, cluster block.
const ClusterInsightsHeader = `You are analyzing YouTube comments for the channel "%s".
%s
Below are %d clusters of viewer comments. For each cluster, provide:
1. A clear label (5-10 words).
2. A unique video idea (Ensure it is NOT similar to the "Recent Videos" listed above).
3. A suggested pinned reply.

IMPORTANT: You MUST return the exact "clusterId" provided in the input.

Clusters:
%s
Respond ONLY with valid JSON:
{
  "clusters": [
    {
      "clusterId": "the_id_provided_above",
      "label": "Theme label",
      "videoIdea": "Idea title",
      "suggestedPinnedReply": "Reply text"
    }
  ]
}`

// RecentVideosContextHeader introduces the recent-video titles block that
// steers video ideas away from content the creator just published.
const RecentVideosContextHeader = `
CONTEXT - The creator has RECENTLY posted videos with these titles. DO NOT suggest ideas that overlap with these:`

// ============================================================================
// Reply Suggestion Prompts (per-comment reply opportunities)
// ============================================================================

// ReplySystemPrompt defines the role for reply suggestion generation.
const ReplySystemPrompt = `You are an expert community manager.`

// ReplySuggestionsHeader opens the reply suggestion prompt.
// Arguments: channel name, numbered comment block.
const ReplySuggestionsHeader = `You are a community manager for the YouTube channel "%s".
Analyze these comments and suggest which ones deserve a personal reply.

Comments:
%s

Respond ONLY with JSON:
{
  "replies": [
    {
      "commentId": 0,
      "reason": "Why this comment is high priority",
      "suggestedReply": "What the creator should say",
      "priorityScore": 85
    }
  ]
}`
