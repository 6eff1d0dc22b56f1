package progression

import "math"

const (
	// PointsPerLevel is the width of one level band.
	PointsPerLevel = 100

	bucketStep = 25
)

// CalculateLevel maps accumulated points to a level: floor(points/100) + 1.
func CalculateLevel(points int) int {
	if points < 0 {
		return 1
	}
	return points/PointsPerLevel + 1
}

// ProgressBucket snaps the progress within the current level to the nearest
// quarter, one of 0, 25, 50, 75 or 100.
func ProgressBucket(points int) int {
	if points < 0 {
		return 0
	}
	within := float64(points % PointsPerLevel)
	return int(math.Round(within/bucketStep)) * bucketStep
}

// PointsToNextLevel returns how many points are missing until the next level.
func PointsToNextLevel(points int) int {
	if points < 0 {
		points = 0
	}
	return PointsPerLevel - points%PointsPerLevel
}
