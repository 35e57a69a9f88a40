// Package collaborator holds helpers shared by all collaborator adapters:
// WaitFor blocks on Connect with exponential backoff and GoalFromService lets
// a request/response service be driven through the goal loop.
//
// Concrete adapters live in sub-packages: memory (in-process, scripted) and
// redisgoal (goals transported over Redis).
package collaborator
