// Package actions holds the concrete robot actions and the registry entries
// that wire them to their collaborators.
//
// Goal-based actions (reposition, move, speak, gripper) drive their goal
// server through step.BaseStep.TrackGoal; recognize_object calls request /
// response services; wait needs no collaborator at all.
package actions
