package fflag

/*
Disabling the GatewayEnabled flag does the following:

1. Skill execution is refused for every user regardless of subscription tier
2. The proactive intelligence loop skips its analysis and learning cycles

Note: the flag is a kill switch layered over tier permissions, it can only
take capability away, never grant it.
*/
const GatewayEnabled = "gateway-enabled"
const ProactiveSuggestions = "proactive-suggestions"
