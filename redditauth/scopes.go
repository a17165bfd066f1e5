package redditauth

// ScopesVersion identifies the revision of Scopes. Bump it whenever the list changes
// so stored tokens can be compared against what the app now asks for.
const ScopesVersion = 1

// Scopes is every permission scope reddit offers, requested on each authorize call.
const Scopes = "history,identity,mysubreddits,read,subscribe,vote,submit," +
	"save,edit,account,creddits,flair,livemanage,modconfig," +
	"modcontributors,modflair,modlog,modothers,modposts,modself," +
	"modwiki,privatemessages,report,wikiedit,wikiread"
