package app

import "scenic/internal/model"

// SaveRoad adds road to the library. Failures are logged and reported back to the view.
func (o *Orchestrator) SaveRoad(road model.Road) error {
	if err := o.library.Add(road); err != nil {
		o.logger.Error("Failed to save road", "name", road.Name, "err", err)
		return err
	}
	return nil
}

// RemoveRoad removes road from the library.
func (o *Orchestrator) RemoveRoad(road model.Road) error {
	if err := o.library.Remove(road); err != nil {
		o.logger.Error("Failed to remove road", "name", road.Name, "err", err)
		return err
	}
	return nil
}

// IsSaved reports whether road is in the library.
func (o *Orchestrator) IsSaved(road model.Road) bool {
	return o.library.Contains(road)
}

// Library returns the saved roads in insertion order.
func (o *Orchestrator) Library() []model.Road {
	return o.library.Roads()
}

// LibraryCount returns the number of saved roads.
func (o *Orchestrator) LibraryCount() int {
	return o.library.Len()
}
